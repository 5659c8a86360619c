package bot

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/RajshekharX12/vpn/internal/wgadmin"
)

// Callback data values for the main menu buttons.
const (
	cbOwnerClaim = "owner:claim"
	cbServer     = "server:current"
	cbInstall    = "wg:install"
	cbRestart    = "wg:restart"
	cbStats      = "wg:stats"
	cbAudit      = "wg:audit"
	cbPeerAdd    = "peer:add"
	cbPeerList   = "peer:list"
	cbPeerCfg    = "peer:cfg"
	cbPeerQR     = "peer:qr"
	cbPeerRevoke = "peer:revoke"
	cbHelp       = "help"
)

// mainMenu builds the inline keyboard. Before an owner exists only the
// claim button is useful; everything else would be denied anyway.
func (b *Bot) mainMenu(ownerSet bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonData("🌍 "+b.serverLabel(), cbServer)},
	}
	if !ownerSet {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🔐 I'm the owner (set me)", cbOwnerClaim),
		})
	} else {
		rows = append(rows,
			[]tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData("🧰 Install/Check WireGuard", cbInstall),
			},
			[]tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData("➕ Add peer", cbPeerAdd),
				tgbotapi.NewInlineKeyboardButtonData("📋 List peers", cbPeerList),
			},
			[]tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData("🧾 Get config", cbPeerCfg),
				tgbotapi.NewInlineKeyboardButtonData("🔳 QR code", cbPeerQR),
			},
			[]tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData("🗑 Revoke peer", cbPeerRevoke),
				tgbotapi.NewInlineKeyboardButtonData("♻️ Restart WG", cbRestart),
			},
			[]tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData("📈 Stats", cbStats),
				tgbotapi.NewInlineKeyboardButtonData("🩺 Audit", cbAudit),
			},
			[]tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData("❓ Help", cbHelp),
			},
		)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) serverLabel() string {
	if b.cfg.Server.Endpoint != "" {
		return "Server: " + b.cfg.Server.Endpoint
	}
	return "Server: " + b.cfg.Server.Interface
}

func helpText() string {
	return strings.Join([]string{
		"❓ <b>Help</b>",
		"",
		"• 🧰 <b>Install/Check WireGuard</b> — sets up the server if missing",
		"• ➕ <b>Add peer</b> — create a new client (you'll be asked for a name)",
		"• 📋 <b>List peers</b> — see all clients and their addresses",
		"• 🧾 <b>Get config</b> — sends a .conf file to import on desktop/mobile",
		"• 🔳 <b>QR code</b> — scan with the WireGuard app",
		"• 🗑 <b>Revoke peer</b> — remove a client's access",
		"• ♻️ <b>Restart WG</b> — restart the interface after endpoint/DNS changes",
		"• 📈 <b>Stats</b> — handshakes and data usage",
		"• 🩺 <b>Audit</b> — check the peer records against the live server",
	}, "\n")
}

func peerListText(peers []wgadmin.PeerSummary) string {
	if len(peers) == 0 {
		return "No peers yet. Use ➕ <b>Add peer</b>."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 <b>Peers</b> (%d)\n", len(peers)))
	for _, p := range peers {
		fmt.Fprintf(&sb, "• <code>%s</code> — <code>%s</code> (%s)\n",
			html.EscapeString(p.Name), p.Address, p.KeyPrefix)
	}
	return sb.String()
}

func auditText(rep wgadmin.AuditReport) string {
	if rep.Clean() {
		return "🩺 Audit clean: records, interface file and live server agree."
	}
	return "🩺 <b>Audit found drift</b>\n<pre>" + html.EscapeString(rep.String()) + "</pre>"
}
