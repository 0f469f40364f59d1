package service

import "context"

// 变更原因
const (
	ReasonFed             = "fed"
	ReasonPlayed          = "played"
	ReasonItemConsumed    = "item_consumed"
	ReasonActivityAwarded = "activity_awarded"
	ReasonGiftSent        = "gift_sent"
	ReasonItemGranted     = "item_granted"
	ReasonRenamed         = "renamed"
	ReasonCustomized      = "customized"
)

// Notifier 状态变更通知，在事务提交后调用，不能阻塞
type Notifier interface {
	NotifyChanged(ctx context.Context, reason string, userIDs ...string)
}

// NopNotifier 不发送任何通知
type NopNotifier struct{}

// NotifyChanged 实现 Notifier
func (NopNotifier) NotifyChanged(context.Context, string, ...string) {}
