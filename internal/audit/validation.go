package audit

import (
	"errors"
	"fmt"
	"time"

	"github.com/forkful/forkful/internal/model"
)

// ErrInvalidPayload marks events that cannot be stored and go to the DLQ.
var ErrInvalidPayload = errors.New("invalid audit payload")

// MaxClockSkew bounds how far in the future an event timestamp may lie.
const MaxClockSkew = 5 * time.Minute

var validActions = map[string]bool{
	model.AuditActionCreated: true,
	model.AuditActionUpdated: true,
	model.AuditActionDeleted: true,
}

var validObjectTypes = map[string]bool{
	model.AuditObjectUser:       true,
	model.AuditObjectToken:      true,
	model.AuditObjectTag:        true,
	model.AuditObjectIngredient: true,
	model.AuditObjectRecipe:     true,
}

// ValidatePayload checks that an event can be written to Postgres.
// The worker routes failing events to the dead letter stream instead of
// retrying them, since a malformed payload never becomes valid.
func ValidatePayload(p EventPayload) error {
	if p.ActorID == "" {
		return fmt.Errorf("%w: missing actor id", ErrInvalidPayload)
	}
	if !validActions[p.Action] {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidPayload, p.Action)
	}
	if !validObjectTypes[p.ObjectType] {
		return fmt.Errorf("%w: unknown object type %q", ErrInvalidPayload, p.ObjectType)
	}
	if p.ObjectID == "" {
		return fmt.Errorf("%w: missing object id", ErrInvalidPayload)
	}
	if p.OccurredAt <= 0 {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidPayload)
	}
	if time.UnixMilli(p.OccurredAt).After(time.Now().Add(MaxClockSkew)) {
		return fmt.Errorf("%w: timestamp in the future", ErrInvalidPayload)
	}
	return nil
}
