package chatbot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Discord connects a Handler to a Discord bot account.
type Discord struct {
	session *discordgo.Session
	handler *Handler
	log     *zap.Logger
	timeout time.Duration
	ctx     context.Context
}

func NewDiscord(token string, handler *Handler, log *zap.Logger) (*Discord, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	if log == nil {
		log = zap.NewNop()
	}
	d := &Discord{session: s, handler: handler, log: log, timeout: 2 * time.Minute, ctx: context.Background()}
	s.AddHandler(d.onReady)
	s.AddHandler(d.onMessageCreate)
	return d, nil
}

// Run opens the gateway connection and blocks until ctx is done.
func (d *Discord) Run(ctx context.Context) error {
	d.ctx = ctx
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	<-ctx.Done()
	if err := d.session.Close(); err != nil {
		d.log.Warn("discord close failed", zap.Error(err))
	}
	return ctx.Err()
}

func (d *Discord) onReady(s *discordgo.Session, r *discordgo.Ready) {
	d.log.Info("bot logged in", zap.String("user", r.User.String()))
}

func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}
	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()
	reply := func(text string) error {
		_, err := s.ChannelMessageSend(m.ChannelID, text)
		return err
	}
	if _, err := d.handler.Handle(ctx, m.Content, reply); err != nil {
		d.log.Warn("discord reply failed", zap.String("channel_id", m.ChannelID), zap.Error(err))
	}
}
