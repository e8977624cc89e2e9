package model

import "testing"

func TestToggleAction(t *testing.T) {
	like, dislike := ReactionLike, ReactionDislike
	tests := []struct {
		name      string
		existing  *string
		requested string
		want      string
	}{
		{"none", nil, ReactionLike, ActionAdded},
		{"same like", &like, ReactionLike, ActionRemoved},
		{"same dislike", &dislike, ReactionDislike, ActionRemoved},
		{"like to dislike", &like, ReactionDislike, ActionSwitched},
		{"dislike to like", &dislike, ReactionLike, ActionSwitched},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToggleAction(tt.existing, tt.requested); got != tt.want {
				t.Fatalf("ToggleAction = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidReactionAndSubject(t *testing.T) {
	if !ValidReaction("like") || !ValidReaction("dislike") || ValidReaction("love") {
		t.Fatal("unexpected reaction validation")
	}
	if !ValidSubject("question") || !ValidSubject("comment") || ValidSubject("task") {
		t.Fatal("unexpected subject validation")
	}
}
