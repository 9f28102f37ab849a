// Package filter holds the declarative version configuration: for each mime
// category, an ordered list of version ids and the instructions that produce
// them.
package filter

import (
	"errors"
	"fmt"
	"sort"
)

// Reserved operation names. Every other name is passed to the adapter as is.
const (
	OpConvert = "convert"
	OpClone   = "clone"
)

// Clone strategies accepted as the argument of a clone instruction.
const (
	CloneCopy    = "copy"
	CloneSymlink = "symlink"
	CloneLink    = "link"
)

var (
	// ErrDuplicateVersion is returned when a version id repeats within a category.
	ErrDuplicateVersion = errors.New("duplicate version id")

	// ErrDuplicateInstruction is returned when an operation repeats within one set.
	ErrDuplicateInstruction = errors.New("duplicate instruction")
)

// Instruction is one (operation, argument) pair.
type Instruction struct {
	Name string
	Arg  any
}

// InstructionSet is an ordered sequence of instructions.
type InstructionSet []Instruction

// Lookup returns the argument of the first instruction named name.
func (s InstructionSet) Lookup(name string) (any, bool) {
	for _, in := range s {
		if in.Name == name {
			return in.Arg, true
		}
	}
	return nil, false
}

// Clone returns the clone strategy, if the set has a clone instruction.
func (s InstructionSet) Clone() (string, bool) {
	arg, ok := s.Lookup(OpClone)
	if !ok {
		return "", false
	}
	strategy, _ := arg.(string)
	return strategy, true
}

// Convert returns the target mime type of a convert instruction.
func (s InstructionSet) Convert() (string, bool) {
	arg, ok := s.Lookup(OpConvert)
	if !ok {
		return "", false
	}
	mimeType, ok := arg.(string)
	return mimeType, ok && mimeType != ""
}

// Without returns a copy of s minus every instruction named in names.
func (s InstructionSet) Without(names ...string) InstructionSet {
	out := make(InstructionSet, 0, len(s))
outer:
	for _, in := range s {
		for _, n := range names {
			if in.Name == n {
				continue outer
			}
		}
		out = append(out, in)
	}
	return out
}

// Validate rejects empty or repeated operation names and a clone or convert
// instruction whose argument is not a string.
func (s InstructionSet) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for i, in := range s {
		if in.Name == "" {
			return fmt.Errorf("instruction %d: empty operation name", i)
		}
		if _, dup := seen[in.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateInstruction, in.Name)
		}
		seen[in.Name] = struct{}{}

		switch in.Name {
		case OpClone, OpConvert:
			if v, ok := in.Arg.(string); !ok || v == "" {
				return fmt.Errorf("instruction %s: argument must be a non-empty string, got %v", in.Name, in.Arg)
			}
		}
	}
	return nil
}

// String renders the set as "name=arg" pairs in order.
func (s InstructionSet) String() string {
	out := "{"
	for i, in := range s {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%v", in.Name, in.Arg)
	}
	return out + "}"
}

// Version names one derivative and the instructions that produce it.
type Version struct {
	ID           string
	Instructions InstructionSet
}

// Config maps a mime category to its versions in generation order.
type Config map[string][]Version

// Add appends a version to category, rejecting a repeated id.
func (c Config) Add(category, id string, set InstructionSet) error {
	if id == "" {
		return fmt.Errorf("category %s: empty version id", category)
	}
	for _, v := range c[category] {
		if v.ID == id {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateVersion, category, id)
		}
	}
	if err := set.Validate(); err != nil {
		return fmt.Errorf("version %s/%s: %w", category, id, err)
	}
	c[category] = append(c[category], Version{ID: id, Instructions: set})
	return nil
}

// Versions returns the versions configured for category, in order.
func (c Config) Versions(category string) []Version {
	return c[category]
}

// Lookup finds a version by category and id.
func (c Config) Lookup(category, id string) (Version, bool) {
	for _, v := range c[category] {
		if v.ID == id {
			return v, true
		}
	}
	return Version{}, false
}

// Only returns a Config holding just category.
func (c Config) Only(category string) Config {
	out := Config{}
	if v, ok := c[category]; ok {
		out[category] = v
	}
	return out
}

// Categories returns the configured categories sorted by name.
func (c Config) Categories() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validate checks every category for repeated ids and invalid sets. Configs
// built through Add or Parse are already valid.
func (c Config) Validate() error {
	for _, category := range c.Categories() {
		seen := make(map[string]struct{})
		for _, v := range c[category] {
			if _, dup := seen[v.ID]; dup {
				return fmt.Errorf("%w: %s/%s", ErrDuplicateVersion, category, v.ID)
			}
			seen[v.ID] = struct{}{}
			if err := v.Instructions.Validate(); err != nil {
				return fmt.Errorf("version %s/%s: %w", category, v.ID, err)
			}
		}
	}
	return nil
}
