package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"

	"github.com/ironsan2kk-pixel/back-sub000/internal/logger"
)

const callTimeout = 10 * time.Second

// TelegramClient implements Client over the Bot API. The bot must be an
// administrator of every managed channel with invite and ban rights.
type TelegramClient struct {
	bot *bot.Bot
}

func NewTelegramClient(b *bot.Bot) *TelegramClient {
	return &TelegramClient{bot: b}
}

func (c *TelegramClient) GrantAccess(ctx context.Context, channelTelegramID, userTelegramID int64, expiresAt *time.Time) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	// Lift a previous kick first, otherwise the invite link is unusable.
	_, err := c.bot.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{
		ChatID:       channelTelegramID,
		UserID:       userTelegramID,
		OnlyIfBanned: true,
	})
	if err != nil {
		logger.Warnf("membership: unban before invite failed chat=%d user=%d: %v", channelTelegramID, userTelegramID, err)
	}

	params := &bot.CreateChatInviteLinkParams{
		ChatID:      channelTelegramID,
		Name:        fmt.Sprintf("sub-%d", userTelegramID),
		MemberLimit: 1,
	}
	if expiresAt != nil {
		params.ExpireDate = int(expiresAt.Unix())
	}

	link, err := c.bot.CreateChatInviteLink(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create invite link for chat %d: %w", channelTelegramID, err)
	}
	return link.InviteLink, nil
}

// RevokeAccess kicks the user: ban then immediate unban, so a future
// purchase can re-admit them.
func (c *TelegramClient) RevokeAccess(ctx context.Context, channelTelegramID, userTelegramID int64) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	_, err := c.bot.BanChatMember(ctx, &bot.BanChatMemberParams{
		ChatID: channelTelegramID,
		UserID: userTelegramID,
	})
	if err != nil {
		return fmt.Errorf("ban user %d in chat %d: %w", userTelegramID, channelTelegramID, err)
	}

	_, err = c.bot.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{
		ChatID:       channelTelegramID,
		UserID:       userTelegramID,
		OnlyIfBanned: true,
	})
	if err != nil {
		return fmt.Errorf("unban user %d in chat %d: %w", userTelegramID, channelTelegramID, err)
	}
	return nil
}
