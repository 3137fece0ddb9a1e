package model

// Instruction is one decoded command of the robot vocabulary.
type Instruction int

const (
	Halt Instruction = iota
	MoveForward
	MoveBackward
	StopMotors
	Delay
	TurnRight
	TurnLeft
	LedOn
	LedOff
	ReadTemperature
	ReadAverageLight
)

// Sequence is a validated list of instructions in execution order.
type Sequence []Instruction

var names = map[Instruction]string{
	Halt:             "DONE",
	MoveForward:      "MOVEFORWARD",
	MoveBackward:     "MOVEBACKWARD",
	StopMotors:       "STOPMOTORS",
	Delay:            "DELAY",
	TurnRight:        "TURNRIGHT",
	TurnLeft:         "TURNLEFT",
	LedOn:            "LEDON",
	LedOff:           "LEDOFF",
	ReadTemperature:  "TEMPERATURE",
	ReadAverageLight: "AVERAGELIGHT",
}

var byName = func() map[string]Instruction {
	m := make(map[string]Instruction, len(names))
	for in, name := range names {
		m[name] = in
	}
	return m
}()

// Lookup maps a command name to its instruction. Matching is exact and case-sensitive.
func Lookup(name string) (Instruction, bool) {
	in, ok := byName[name]
	return in, ok
}

// Vocabulary returns every instruction in declaration order.
func Vocabulary() []Instruction {
	out := make([]Instruction, 0, len(names))
	for in := Halt; in <= ReadAverageLight; in++ {
		out = append(out, in)
	}
	return out
}

func (in Instruction) String() string {
	if name, ok := names[in]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether in is a member of the vocabulary.
func (in Instruction) Valid() bool {
	_, ok := names[in]
	return ok
}

func (s Sequence) Names() []string {
	out := make([]string, len(s))
	for i, in := range s {
		out[i] = in.String()
	}
	return out
}
