package models

import (
	"context"

	"github.com/google/uuid"
)

// ActorContext carries actor identity through an operation. It records
// WHO performed an action (for the activity log) and from where.
type ActorContext struct {
	// Actor indicates how the operation arrived (human UI, AI agent via
	// API key, or GitHub webhook).
	Actor Actor

	// UserID is the authenticated user, when the actor is human.
	// uuid.Nil for agent and webhook actors.
	UserID uuid.UUID

	// RequestIP is the remote address of the originating request, when
	// known. Stored alongside activity log entries.
	RequestIP string
}

// actorKey is the context key for storing actor information.
type actorKey struct{}

// WithActor returns a new context with actor information attached.
func WithActor(ctx context.Context, a ActorContext) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// GetActor retrieves actor information from the context.
// Returns the actor context and true if present, otherwise a zero value
// and false.
func GetActor(ctx context.Context) (ActorContext, bool) {
	a, ok := ctx.Value(actorKey{}).(ActorContext)
	return a, ok
}

// ActorOrUnknown retrieves actor information from the context, falling
// back to a human actor with no user when none is set. Activity logging
// must never fail the primary operation, so this never errors.
func ActorOrUnknown(ctx context.Context) ActorContext {
	if a, ok := GetActor(ctx); ok {
		return a
	}
	return ActorContext{Actor: ActorHuman}
}

// WithHumanActor returns a context with human (UI) actor identity set.
// Use this in HTTP handlers serving authenticated user requests.
func WithHumanActor(ctx context.Context, userID uuid.UUID, requestIP string) context.Context {
	return WithActor(ctx, ActorContext{Actor: ActorHuman, UserID: userID, RequestIP: requestIP})
}

// WithAgentActor returns a context with AI-agent actor identity set.
// Use this after API-key authentication on the project API.
func WithAgentActor(ctx context.Context, requestIP string) context.Context {
	return WithActor(ctx, ActorContext{Actor: ActorAIAgent, RequestIP: requestIP})
}

// WithWebhookActor returns a context with webhook actor identity set.
func WithWebhookActor(ctx context.Context) context.Context {
	return WithActor(ctx, ActorContext{Actor: ActorWebhook})
}
