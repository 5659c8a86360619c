package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/RajshekharX12/vpn/internal/wgadmin"
)

// Pending step actions. The values match the persisted state file, so a
// conversation survives a bot restart mid-prompt.
const (
	stepAddName    = "await_name_add"
	stepCfgName    = "await_name_cfg"
	stepQRName     = "await_name_qr"
	stepRevokeName = "await_name_revoke"
)

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	// Telegram omits the originating message for callbacks on messages
	// older than 48 hours. Without it there is no chat to reply into, so
	// just answer the button press and have the user reopen the menu.
	if cq.Message == nil || cq.Message.Chat == nil {
		b.answerCallback(cq.ID, "This menu has expired, send /start for a fresh one.", true)
		return
	}

	userID := cq.From.ID
	chatID := cq.Message.Chat.ID

	if cq.Data == cbOwnerClaim {
		b.handleOwnerClaim(cq)
		return
	}
	if !b.isOwner(userID) {
		b.answerCallback(cq.ID, "Access denied", true)
		return
	}

	switch cq.Data {
	case cbServer:
		b.answerCallback(cq.ID, b.serverLabel(), true)
		return

	case cbInstall:
		b.runInstall(ctx, cq)

	case cbRestart:
		if err := b.mgr.Restart(ctx); err != nil {
			b.reply(chatID, "❌ Restart failed: "+html.EscapeString(err.Error()))
		} else {
			b.reply(chatID, "✅ Interface restarted.")
		}

	case cbStats:
		out, err := b.mgr.Stats(ctx)
		if err != nil {
			b.reply(chatID, "❌ "+html.EscapeString(err.Error()))
		} else if strings.TrimSpace(out) == "" {
			b.reply(chatID, "📈 Interface is up, no peer traffic yet.")
		} else {
			b.reply(chatID, "📈 <b>Stats</b>\n<pre>"+html.EscapeString(out)+"</pre>")
		}

	case cbAudit:
		rep, err := b.mgr.Audit(ctx)
		if err != nil {
			b.reply(chatID, "❌ Audit failed: "+html.EscapeString(err.Error()))
		} else {
			b.reply(chatID, auditText(rep))
		}

	case cbPeerList:
		b.reply(chatID, peerListText(b.mgr.ListPeers()))

	case cbPeerAdd:
		if !b.mgr.Ready(ctx) {
			b.reply(chatID, "⚠️ WireGuard not ready. Tap 🧰 <b>Install/Check WireGuard</b> first.")
			break
		}
		b.askForName(userID, chatID, stepAddName,
			"✍️ Send a name for the new peer (e.g. <code>iphone13</code>)")

	case cbPeerCfg:
		b.askForName(userID, chatID, stepCfgName,
			"📦 Send peer name to get the <b>.conf</b> file")

	case cbPeerQR:
		b.askForName(userID, chatID, stepQRName,
			"🔳 Send peer name to get the <b>QR code</b>")

	case cbPeerRevoke:
		b.askForName(userID, chatID, stepRevokeName,
			"🗑 Send peer name to revoke")

	case cbHelp:
		b.reply(chatID, helpText())
	}

	b.answerCallback(cq.ID, "", false)
}

func (b *Bot) handleOwnerClaim(cq *tgbotapi.CallbackQuery) {
	if _, _, ok := b.mgr.Store().Owner(); !ok {
		if err := b.mgr.Store().SetOwner(cq.From.ID, cq.From.UserName); err != nil {
			b.log.Error("persisting owner", "error", err)
			b.answerCallback(cq.ID, "Could not save owner", true)
			return
		}
		edit := tgbotapi.NewEditMessageTextAndMarkup(
			cq.Message.Chat.ID, cq.Message.MessageID,
			fmt.Sprintf("✅ Owner set: <b>%d</b>\nNow you can manage the VPN.", cq.From.ID),
			b.mainMenu(true))
		edit.ParseMode = tgbotapi.ModeHTML
		b.send(edit)
		b.answerCallback(cq.ID, "Owner saved", false)
		return
	}
	if !b.isOwner(cq.From.ID) {
		b.answerCallback(cq.ID, "Access denied", true)
		return
	}
	b.answerCallback(cq.ID, "Owner already set", false)
}

// runInstall reports the installer outcome and replaces the old menu
// message with a fresh one.
func (b *Bot) runInstall(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID

	rep, err := b.inst.Install(ctx)
	var text string
	switch {
	case err != nil:
		text = "❌ Install failed: " + html.EscapeString(err.Error())
	case rep.AlreadyInstalled:
		text = "✅ WireGuard already installed and running."
	default:
		text = "✅ WireGuard installed and running."
	}
	if err == nil && rep.Endpoint != "" {
		text += "\nEndpoint: <code>" + html.EscapeString(rep.Endpoint) + "</code>"
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = b.mainMenu(true)
	b.send(msg)
	b.deleteMessage(chatID, cq.Message.MessageID)
}

// askForName records the pending step and posts a prompt whose id is
// remembered for cleanup.
func (b *Bot) askForName(userID, chatID int64, action, prompt string) {
	if err := b.mgr.Store().SetPendingStep(userID, wgadmin.Step{Action: action}); err != nil {
		b.log.Error("persisting pending step", "error", err)
		b.reply(chatID, "❌ Could not start the operation, try again.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, prompt)
	msg.ParseMode = tgbotapi.ModeHTML
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Warn("telegram send failed", "error", err)
		return
	}
	b.setPrompt(userID, sent.MessageID)
}

func (b *Bot) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	userID := m.From.ID
	chatID := m.Chat.ID

	if m.IsCommand() && m.Command() == "start" {
		msg := tgbotapi.NewMessage(chatID,
			"👋 <b>WireGuard VPN Manager</b>\nButtons only. First, set yourself as the owner.")
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = b.mainMenu(b.ownerSet())
		b.send(msg)
		return
	}

	if !b.ownerSet() {
		msg := tgbotapi.NewMessage(chatID, "Tap 🔐 I'm the owner (set me) first.")
		msg.ReplyMarkup = b.mainMenu(false)
		b.send(msg)
		return
	}
	if !b.isOwner(userID) {
		b.reply(chatID, "Access denied.")
		return
	}

	st, ok := b.mgr.Store().PendingStep(userID)
	if !ok {
		msg := tgbotapi.NewMessage(chatID, "Use the buttons below.")
		msg.ReplyMarkup = b.mainMenu(true)
		b.send(msg)
		return
	}

	name := strings.TrimSpace(m.Text)
	if name == "" {
		b.reply(chatID, "Send a valid name.")
		return
	}

	promptID := b.popPrompt(userID)
	switch st.Action {
	case stepAddName:
		b.finishAdd(ctx, chatID, name)
	case stepCfgName:
		b.finishGetConfig(chatID, name)
	case stepQRName:
		b.finishQR(chatID, name)
	case stepRevokeName:
		b.finishRevoke(ctx, chatID, name)
	default:
		b.log.Warn("unknown pending step", "action", st.Action)
	}

	// Tidy up: drop the name the user typed and our prompt, then
	// forget the step.
	b.deleteMessage(chatID, m.MessageID)
	b.deleteMessage(chatID, promptID)
	if err := b.mgr.Store().ClearPendingStep(userID); err != nil {
		b.log.Warn("clearing pending step", "error", err)
	}
}

func (b *Bot) finishAdd(ctx context.Context, chatID int64, name string) {
	res, err := b.mgr.AddPeer(ctx, name)
	switch {
	case errors.Is(err, wgadmin.ErrDuplicateName):
		b.reply(chatID, "❌ A peer with that name already exists.")
	case errors.Is(err, wgadmin.ErrSubnetExhausted):
		b.reply(chatID, "❌ No free addresses left in the subnet.")
	case errors.Is(err, wgadmin.ErrNotReady):
		b.reply(chatID, "⚠️ WireGuard not ready. Tap 🧰 <b>Install/Check WireGuard</b> first.")
	case err != nil:
		b.reply(chatID, "❌ "+html.EscapeString(err.Error()))
	default:
		b.reply(chatID, fmt.Sprintf(
			"✅ Added <b>%s</b> with IP <code>%s</code>\nUse 🔳 <b>QR code</b> or 🧾 <b>Get config</b>.",
			html.EscapeString(res.Peer.Name), res.Peer.Address))
	}
}

func (b *Bot) finishGetConfig(chatID int64, name string) {
	path, err := b.mgr.ArtifactPath(name)
	if err != nil {
		b.reply(chatID, "❌ No such peer.")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		b.reply(chatID, "❌ "+html.EscapeString(err.Error()))
		return
	}
	clean := wgadmin.SanitizeName(name)
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  clean + ".conf",
		Bytes: data,
	})
	doc.Caption = "Config for <b>" + html.EscapeString(clean) + "</b>"
	doc.ParseMode = tgbotapi.ModeHTML
	b.send(doc)
}

func (b *Bot) finishQR(chatID int64, name string) {
	path, err := b.mgr.ArtifactPath(name)
	if err != nil {
		b.reply(chatID, "❌ No such peer.")
		return
	}
	png, err := wgadmin.ArtifactQRPNG(path)
	if err != nil {
		b.reply(chatID, "❌ "+html.EscapeString(err.Error()))
		return
	}
	clean := wgadmin.SanitizeName(name)
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  clean + ".png",
		Bytes: png,
	})
	photo.Caption = "QR for <b>" + html.EscapeString(clean) + "</b>"
	photo.ParseMode = tgbotapi.ModeHTML
	b.send(photo)
}

func (b *Bot) finishRevoke(ctx context.Context, chatID int64, name string) {
	err := b.mgr.RevokePeer(ctx, name)
	switch {
	case errors.Is(err, wgadmin.ErrNotFound):
		b.reply(chatID, "❌ No such peer.")
	case err != nil:
		b.reply(chatID, "❌ "+html.EscapeString(err.Error()))
	default:
		b.reply(chatID, "✅ Peer <b>"+html.EscapeString(wgadmin.SanitizeName(name))+"</b> revoked.")
	}
}

func (b *Bot) answerCallback(id, text string, alert bool) {
	cb := tgbotapi.NewCallback(id, text)
	cb.ShowAlert = alert
	if _, err := b.api.Request(cb); err != nil {
		b.log.Debug("answer callback failed", "error", err)
	}
}
