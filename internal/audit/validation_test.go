package audit

import (
	"testing"
	"time"
)

func TestValidatePayload(t *testing.T) {
	valid := EventPayload{
		ActorID:    "user-1",
		Action:     "created",
		ObjectType: "recipe",
		ObjectID:   "recipe-1",
		Summary:    "created recipe \"Feijoada\"",
		RequestID:  "req-1",
		OccurredAt: time.Now().UnixMilli(),
	}

	if err := ValidatePayload(valid); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}

	cases := []struct {
		name    string
		payload EventPayload
	}{
		{"missing_actor", EventPayload{Action: "created", ObjectType: "recipe", ObjectID: "r1", OccurredAt: 1}},
		{"unknown_action", EventPayload{ActorID: "u1", Action: "destroyed", ObjectType: "recipe", ObjectID: "r1", OccurredAt: 1}},
		{"unknown_object_type", EventPayload{ActorID: "u1", Action: "created", ObjectType: "widget", ObjectID: "r1", OccurredAt: 1}},
		{"missing_object_id", EventPayload{ActorID: "u1", Action: "created", ObjectType: "recipe", OccurredAt: 1}},
		{"missing_timestamp", EventPayload{ActorID: "u1", Action: "created", ObjectType: "recipe", ObjectID: "r1"}},
		{"future_timestamp", EventPayload{ActorID: "u1", Action: "created", ObjectType: "recipe", ObjectID: "r1", OccurredAt: time.Now().Add(time.Hour).UnixMilli()}},
	}

	for _, tc := range cases {
		if err := ValidatePayload(tc.payload); err == nil {
			t.Fatalf("expected error for %s", tc.name)
		}
	}
}

func TestValidatePayload_AllActions(t *testing.T) {
	t.Parallel()

	for _, action := range []string{"created", "updated", "deleted"} {
		payload := EventPayload{
			ActorID:    "user-1",
			Action:     action,
			ObjectType: "tag",
			ObjectID:   "tag-1",
			OccurredAt: time.Now().UnixMilli(),
		}
		if err := ValidatePayload(payload); err != nil {
			t.Errorf("action %q should be valid, got %v", action, err)
		}
	}
}

func TestValidatePayload_AllObjectTypes(t *testing.T) {
	t.Parallel()

	for _, objectType := range []string{"user", "token", "tag", "ingredient", "recipe"} {
		payload := EventPayload{
			ActorID:    "user-1",
			Action:     "deleted",
			ObjectType: objectType,
			ObjectID:   "obj-1",
			OccurredAt: time.Now().UnixMilli(),
		}
		if err := ValidatePayload(payload); err != nil {
			t.Errorf("object type %q should be valid, got %v", objectType, err)
		}
	}
}
