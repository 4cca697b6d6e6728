// Package clicker implements the click counter game: a player creates a
// Game account and increments its click counter.
package clicker

import (
	"fmt"

	"github.com/govm-net/clicker/core"
	"github.com/govm-net/clicker/vm"
)

// ProgramID is the address the game is deployed at.
var ProgramID = core.MustAddress("Edo4xMkzByZTUiFXWf7wRpTKC2mGvpZpCWcby7REpn3w")

// ErrInvalidPlayer rejects a click from anyone but the game's player.
var ErrInvalidPlayer = core.NewProgramError(0, "InvalidPlayer", "caller is not the player of this game")

// Variant selects how click authorizes its caller.
type Variant string

const (
	// Guarded requires the game's player to sign every click.
	Guarded Variant = "guarded"
	// Unguarded lets anyone referencing a game increment it.
	Unguarded Variant = "unguarded"
)

func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case Guarded, Unguarded:
		return v, nil
	}
	return "", fmt.Errorf("unknown variant %q: %w", s, core.ErrInvalidArgument)
}

// Instruction names.
const (
	InitializeInstruction = "initialize"
	ClickInstruction      = "click"
)

// Program is the clicker game.
type Program struct {
	address core.Address
	variant Variant
}

// New returns the game at ProgramID.
func New(variant Variant) *Program {
	return NewAt(ProgramID, variant)
}

func NewAt(address core.Address, variant Variant) *Program {
	return &Program{address: address, variant: variant}
}

func (p *Program) Address() core.Address {
	return p.address
}

func (p *Program) Name() string {
	return "clicker"
}

func (p *Program) Variant() Variant {
	return p.variant
}

func (p *Program) Handlers() map[[core.DiscriminatorSize]byte]vm.Handler {
	return map[[core.DiscriminatorSize]byte]vm.Handler{
		core.InstructionDiscriminator(InitializeInstruction): p.Initialize,
		core.InstructionDiscriminator(ClickInstruction):      p.Click,
	}
}

// Initialize creates the game account accounts[0] for the player
// accounts[1], who pays its rent. accounts[2] is the system program.
func (p *Program) Initialize(ctx core.Context, accounts []core.Address, args []byte) error {
	if len(accounts) < 3 {
		return fmt.Errorf("initialize takes game, player and system program: %w", core.ErrAccountNotProvided)
	}
	gameID, player := accounts[0], accounts[1]
	if accounts[2] != core.SystemProgram {
		return fmt.Errorf("expected system program, got %s: %w", accounts[2], core.ErrInvalidArgument)
	}

	obj, err := ctx.CreateObject(gameID, player, GameSpace)
	if err != nil {
		return err
	}
	game := &Game{Player: player}
	data, err := game.MarshalBinary()
	if err != nil {
		return err
	}
	if err := obj.SetData(data); err != nil {
		return err
	}

	ctx.Log("GameInitialized", "game", gameID, "player", player)
	return nil
}

// Click increments the game accounts[0]. Guarded programs also take the
// player as accounts[1], who must sign.
func (p *Program) Click(ctx core.Context, accounts []core.Address, args []byte) error {
	if len(accounts) < 1 {
		return fmt.Errorf("click takes a game: %w", core.ErrAccountNotProvided)
	}
	gameID := accounts[0]

	obj, err := ctx.GetObject(gameID)
	if err != nil {
		return err
	}
	game, err := LoadGame(obj, ctx.ContractAddress())
	if err != nil {
		return err
	}

	if p.variant != Unguarded {
		if len(accounts) < 2 {
			return fmt.Errorf("click takes game and player: %w", core.ErrAccountNotProvided)
		}
		caller := accounts[1]
		if !ctx.IsSigner(caller) {
			return fmt.Errorf("player %s: %w", caller, core.ErrMissingSignature)
		}
		if game.Player != caller {
			return ErrInvalidPlayer
		}
	}

	game.Clicks++
	data, err := game.MarshalBinary()
	if err != nil {
		return err
	}
	if err := obj.SetData(data); err != nil {
		return err
	}

	ctx.Log("Clicked", "game", gameID, "player", game.Player, "clicks", game.Clicks)
	return nil
}
