package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// NotificationPayload is immutable once constructed; the same payload is
// fanned out to many device tokens.
type NotificationPayload struct {
	Title string
	Body  string
	Data  map[string]string
}

type DeliveryState uint

const (
	_ DeliveryState = iota
	// Delivered: the gateway accepted the message.
	Delivered
	// Rejected: permanent, the token will never succeed again and should be
	// pruned.
	Rejected
	// Failed: transient, the same token may succeed on a later attempt.
	Failed
)

var deliveryStateMap = map[DeliveryState]string{
	Delivered: "delivered",
	Rejected:  "rejected",
	Failed:    "failed",
}

func (s DeliveryState) String() string {
	return deliveryStateMap[s]
}

// DeliveryOutcome is the result of one send to one device token. Every token
// in a batch ends in exactly one outcome.
type DeliveryOutcome struct {
	Token     string
	State     DeliveryState
	MessageID string
	Err       error
}

type SendError struct {
	Token  string
	Reason string
}

// BatchResult aggregates one orchestrated send. The three buckets are
// disjoint: Success + Failure + len(InvalidTokens) equals the input size.
type BatchResult struct {
	Success       int
	Failure       int
	InvalidTokens []string
	Errors        []SendError
}

// SendToToken delivers a single notification to a single device token.
func (u Usecase) SendToToken(ctx context.Context, token string, n NotificationPayload) DeliveryOutcome {
	return u.sender.Send(ctx, token, n)
}

// SendToMany fans one notification out to every token concurrently, waits for
// all sends regardless of individual failures, and folds the outcomes in
// input order. Tokens classified permanently invalid are deactivated in the
// registry afterwards; that write is best-effort and never changes the
// returned result.
func (u Usecase) SendToMany(ctx context.Context, tokens []string, n NotificationPayload) BatchResult {
	outcomes := make([]DeliveryOutcome, len(tokens))

	g := new(errgroup.Group)
	if u.fanoutLimit > 0 {
		g.SetLimit(u.fanoutLimit)
	}
	for i, token := range tokens {
		g.Go(func() error {
			outcomes[i] = u.sender.Send(ctx, token, n)
			return nil
		})
	}
	_ = g.Wait()

	var res BatchResult
	for _, o := range outcomes {
		switch o.State {
		case Delivered:
			res.Success++
		case Rejected:
			res.InvalidTokens = append(res.InvalidTokens, o.Token)
			res.Errors = append(res.Errors, SendError{Token: o.Token, Reason: o.Err.Error()})
		default:
			res.Failure++
			reason := "unknown failure"
			if o.Err != nil {
				reason = o.Err.Error()
			}
			res.Errors = append(res.Errors, SendError{Token: o.Token, Reason: reason})
		}
	}

	slog.Info("batch notification completed",
		slog.Int("total", len(tokens)),
		slog.Int("success", res.Success),
		slog.Int("failure", res.Failure),
		slog.Int("invalid", len(res.InvalidTokens)),
	)

	u.pruneInvalidTokens(ctx, res.InvalidTokens)

	return res
}

// SendToUser delivers one notification to every active device of a user. A
// registry read failure is the only hard error; a user with no active tokens
// yields an empty result and no gateway calls.
func (u Usecase) SendToUser(ctx context.Context, userID string, n NotificationPayload) (BatchResult, error) {
	pts, err := u.repo.ListActivePushTokens(ctx, userID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list active push tokens: %w", err)
	}
	if len(pts) == 0 {
		slog.Info("no active push tokens for user", slog.String("user_id", userID))
		return BatchResult{}, nil
	}

	tokens := make([]string, 0, len(pts))
	for _, pt := range pts {
		tokens = append(tokens, pt.Token)
	}

	res := u.SendToMany(ctx, tokens, n)

	if res.Success > 0 {
		u.touchDeliveredTokens(ctx, tokens, res)
	}

	return res, nil
}

// pruneInvalidTokens is a deliberately decoupled post-step: a failure here is
// logged, never surfaced to the caller of the batch send.
func (u Usecase) pruneInvalidTokens(ctx context.Context, tokens []string) {
	if len(tokens) == 0 {
		return
	}
	if err := u.repo.DeactivatePushTokens(ctx, tokens); err != nil {
		slog.Error("deactivate push tokens",
			slog.Int("count", len(tokens)),
			slog.String("err", err.Error()),
		)
		return
	}
	slog.Info("deactivated invalid push tokens", slog.Int("count", len(tokens)))
}

// touchDeliveredTokens refreshes last_used for tokens that were delivered to,
// which is what keeps them out of the inactive-token cleanup.
func (u Usecase) touchDeliveredTokens(ctx context.Context, tokens []string, res BatchResult) {
	failed := make(map[string]struct{}, len(res.Errors))
	for _, e := range res.Errors {
		failed[e.Token] = struct{}{}
	}
	delivered := make([]string, 0, res.Success)
	for _, t := range tokens {
		if _, ok := failed[t]; !ok {
			delivered = append(delivered, t)
		}
	}
	if len(delivered) == 0 {
		return
	}
	if err := u.repo.MarkPushTokensUsed(ctx, delivered); err != nil {
		slog.Warn("mark push tokens used", slog.String("err", err.Error()))
	}
}
