package config

import (
	"context"

	"message-gateway/internal/message"
)

type nopDispatcher struct{}

func (nopDispatcher) PublishOutbound(context.Context, string, *message.Message) error     { return nil }
func (nopDispatcher) PublishInbound(context.Context, string, *message.Message) error      { return nil }
func (nopDispatcher) PublishInboundEvent(context.Context, string, *message.Message) error { return nil }
