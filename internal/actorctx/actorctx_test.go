package actorctx

import (
	"context"
	"testing"
)

func TestActor(t *testing.T) {
	if Actor(context.Background()) != nil {
		t.Fatalf("anonymous context should have no actor")
	}

	ctx := WithUserID(context.Background(), 42)
	got := Actor(ctx)
	if got == nil || *got != 42 {
		t.Fatalf("actor: got %v want 42", got)
	}

	if _, ok := UserIDFrom(WithUserID(context.Background(), 0)); ok {
		t.Fatalf("zero id is not a valid actor")
	}
}
