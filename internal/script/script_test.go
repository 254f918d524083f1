package script

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

const sampleScript = `
operations:
  - op: create_space
    actor: alice
    handle: alice_space
    content: QmRAQB6YaCyidP37UdDnjFY5vQuiBrcqdyoW1CuDgwxkD4
  - op: Create_Post
    actor: bobby
    kind: comment
    root: 1
    parent: 2
  - op: update_space
    actor: alice
    space: 1
    writers: [bobby, carol]
  - op: update_reaction
    actor: alice
    post: 1
    reaction: 3
    vote: downvote
`

func TestDecodeReadsOperations(t *testing.T) {
	script, err := Decode(strings.NewReader(sampleScript))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(script.Operations) != 4 {
		t.Fatalf("expected 4 operations, got %d", len(script.Operations))
	}

	comment := script.Operations[1]
	if comment.Op != OpCreatePost {
		t.Fatalf("expected normalized op name, got %q", comment.Op)
	}
	if comment.Root == nil || *comment.Root != 1 || comment.Parent == nil || *comment.Parent != 2 {
		t.Fatalf("unexpected comment placement %+v", comment)
	}
	if comment.Content != nil {
		t.Fatalf("expected no content")
	}

	update := script.Operations[2]
	if update.Writers == nil || len(*update.Writers) != 2 {
		t.Fatalf("unexpected writers %+v", update.Writers)
	}
	if update.Handle != nil {
		t.Fatalf("handle should stay unset")
	}

	reaction := script.Operations[3]
	if reaction.Reaction == nil || *reaction.Reaction != 3 || reaction.Vote != "downvote" {
		t.Fatalf("unexpected reaction update %+v", reaction)
	}
}

func TestDecodeRejectsInvalidScripts(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected error
	}{
		{name: "empty document", raw: "", expected: ErrEmptyScript},
		{name: "no operations", raw: "operations: []\n", expected: ErrEmptyScript},
		{name: "unknown operation", raw: "operations:\n  - op: delete_space\n", expected: ErrUnknownOperation},
		{name: "post score step", raw: "operations:\n  - op: change_post_score\n    actor: alice\n    post: 1\n", expected: ErrUnknownOperation},
		{name: "reputation step", raw: "operations:\n  - op: change_account_reputation\n    actor: alice\n    target: bobby\n", expected: ErrUnknownOperation},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(testCase.raw))
			if !errors.Is(err, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, err)
			}
		})
	}

	if _, err := Decode(strings.NewReader("operations:\n  - op: follow_space\n    colour: red\n")); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	script, err := Decode(strings.NewReader(sampleScript))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var buffer bytes.Buffer
	if err := Encode(&buffer, script); err != nil {
		t.Fatalf("encode: %v", err)
	}
	again, err := Decode(&buffer)
	if err != nil {
		t.Fatalf("decode encoded script: %v", err)
	}
	if len(again.Operations) != len(script.Operations) || *again.Operations[3].Reaction != 3 {
		t.Fatalf("round trip lost operations: %+v", again)
	}
}
