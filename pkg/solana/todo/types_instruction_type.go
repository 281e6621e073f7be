package todo

import (
	"bytes"
)

type InstructionType uint8

const (
	Unknown InstructionType = iota

	InstructionTypeCreateProfile
	InstructionTypeCreateTodo
	InstructionTypeToggleTodo
	InstructionTypeUpdateTodo
	InstructionTypeDeleteTodo
)

var instructionDiscriminators = map[InstructionType][]byte{
	InstructionTypeCreateProfile: instructionDiscriminator("create_profile"),
	InstructionTypeCreateTodo:    instructionDiscriminator("create_todo"),
	InstructionTypeToggleTodo:    instructionDiscriminator("toggle_todo"),
	InstructionTypeUpdateTodo:    instructionDiscriminator("update_todo"),
	InstructionTypeDeleteTodo:    instructionDiscriminator("delete_todo"),
}

func (t InstructionType) String() string {
	switch t {
	case InstructionTypeCreateProfile:
		return "create_profile"
	case InstructionTypeCreateTodo:
		return "create_todo"
	case InstructionTypeToggleTodo:
		return "toggle_todo"
	case InstructionTypeUpdateTodo:
		return "update_todo"
	case InstructionTypeDeleteTodo:
		return "delete_todo"
	}
	return "unknown"
}

func putInstructionType(dst []byte, v InstructionType, offset *int) {
	putDiscriminator(dst, instructionDiscriminators[v], offset)
}

// GetInstructionType identifies the instruction from its data prefix.
func GetInstructionType(data []byte) InstructionType {
	if len(data) < 8 {
		return Unknown
	}

	for t, discriminator := range instructionDiscriminators {
		if bytes.Equal(data[:8], discriminator) {
			return t
		}
	}
	return Unknown
}
