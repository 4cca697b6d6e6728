package clicker

import (
	"github.com/govm-net/clicker/core"
	"github.com/govm-net/clicker/types"
)

func instructionData(name string) []byte {
	disc := core.InstructionDiscriminator(name)
	return disc[:]
}

// NewInitializeInstruction creates game for player. Both must sign.
func NewInitializeInstruction(program, game, player core.Address) types.Instruction {
	return types.Instruction{
		Program: program,
		Accounts: []types.AccountMeta{
			{Address: game, IsSigner: true, IsWritable: true},
			{Address: player, IsSigner: true, IsWritable: true},
			{Address: core.SystemProgram},
		},
		Data: instructionData(InitializeInstruction),
	}
}

// NewClickInstruction increments game on behalf of player, who must sign.
func NewClickInstruction(program, game, player core.Address) types.Instruction {
	return types.Instruction{
		Program: program,
		Accounts: []types.AccountMeta{
			{Address: game, IsWritable: true},
			{Address: player, IsSigner: true},
		},
		Data: instructionData(ClickInstruction),
	}
}
