// Package script decodes YAML operation scripts and applies them to a ledger.
package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Operation names accepted in scripts.
const (
	OpCreateProfile   = "create_profile"
	OpUpdateProfile   = "update_profile"
	OpCreateSpace     = "create_space"
	OpUpdateSpace     = "update_space"
	OpFollowSpace     = "follow_space"
	OpUnfollowSpace   = "unfollow_space"
	OpFollowAccount   = "follow_account"
	OpUnfollowAccount = "unfollow_account"
	OpCreatePost      = "create_post"
	OpUpdatePost      = "update_post"
	OpCreateReaction  = "create_reaction"
	OpUpdateReaction  = "update_reaction"
	OpDeleteReaction  = "delete_reaction"
)

// Post kinds accepted by create_post.
const (
	KindRegular = "regular"
	KindComment = "comment"
	KindShared  = "shared"
)

var (
	ErrEmptyScript      = errors.New("script: no operations")
	ErrUnknownOperation = errors.New("script: unknown operation")
	ErrMissingField     = errors.New("script: missing field")
)

var knownOperations = map[string]struct{}{
	OpCreateProfile:   {},
	OpUpdateProfile:   {},
	OpCreateSpace:     {},
	OpUpdateSpace:     {},
	OpFollowSpace:     {},
	OpUnfollowSpace:   {},
	OpFollowAccount:   {},
	OpUnfollowAccount: {},
	OpCreatePost:      {},
	OpUpdatePost:      {},
	OpCreateReaction:  {},
	OpUpdateReaction:  {},
	OpDeleteReaction:  {},
}

// Script is an ordered list of operations.
type Script struct {
	Operations []Operation `yaml:"operations"`
}

// Operation is one ledger call. Only the fields relevant to Op are read.
// Actor names the caller when tokens are not required; Token carries a signed
// actor token otherwise.
type Operation struct {
	Op       string    `yaml:"op"`
	Actor    string    `yaml:"actor,omitempty"`
	Token    string    `yaml:"token,omitempty"`
	Handle   *string   `yaml:"handle,omitempty"`
	Content  *string   `yaml:"content,omitempty"`
	Writers  *[]string `yaml:"writers,omitempty"`
	Space    *uint64   `yaml:"space,omitempty"`
	Post     *uint64   `yaml:"post,omitempty"`
	Kind     string    `yaml:"kind,omitempty"`
	Root     *uint64   `yaml:"root,omitempty"`
	Parent   *uint64   `yaml:"parent,omitempty"`
	Original *uint64   `yaml:"original,omitempty"`
	Reaction *uint64   `yaml:"reaction,omitempty"`
	Vote     string    `yaml:"vote,omitempty"`
	Target   string    `yaml:"target,omitempty"`
}

// Decode reads a script, rejecting unknown fields and operations.
func Decode(reader io.Reader) (Script, error) {
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	var script Script
	if err := decoder.Decode(&script); err != nil {
		if errors.Is(err, io.EOF) {
			return Script{}, ErrEmptyScript
		}
		return Script{}, fmt.Errorf("script: decode: %w", err)
	}
	if len(script.Operations) == 0 {
		return Script{}, ErrEmptyScript
	}
	for index := range script.Operations {
		operation := &script.Operations[index]
		operation.Op = strings.ToLower(strings.TrimSpace(operation.Op))
		if _, ok := knownOperations[operation.Op]; !ok {
			return Script{}, fmt.Errorf("%w: %q at index %d", ErrUnknownOperation, operation.Op, index)
		}
	}
	return script, nil
}

// Load decodes the script stored at path.
func Load(path string) (Script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	return Decode(bytes.NewReader(raw))
}

// Encode writes script as YAML.
func Encode(writer io.Writer, script Script) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(script); err != nil {
		return err
	}
	return encoder.Close()
}

func requireSpace(operation Operation) (uint64, error) {
	if operation.Space == nil {
		return 0, fmt.Errorf("%w: space", ErrMissingField)
	}
	return *operation.Space, nil
}

func requirePost(operation Operation) (uint64, error) {
	if operation.Post == nil {
		return 0, fmt.Errorf("%w: post", ErrMissingField)
	}
	return *operation.Post, nil
}

func requireReaction(operation Operation) (uint64, error) {
	if operation.Reaction == nil {
		return 0, fmt.Errorf("%w: reaction", ErrMissingField)
	}
	return *operation.Reaction, nil
}

func contentOrEmpty(operation Operation) string {
	if operation.Content == nil {
		return ""
	}
	return *operation.Content
}
