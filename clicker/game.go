package clicker

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/govm-net/clicker/core"
)

const (
	// GameSize is the serialized size of a Game without its header.
	GameSize = 32 + 4
	// GameSpace is the account space allocated for a Game.
	GameSpace = core.DiscriminatorSize + GameSize
)

// GameDiscriminator prefixes every Game account.
var GameDiscriminator = core.AccountDiscriminator("Game")

// Game is the per-player record.
type Game struct {
	Player core.Address `json:"player"`
	Clicks uint32       `json:"clicks"`
}

// MarshalBinary encodes g with its discriminator: 8 header bytes, the
// player key, then clicks little endian.
func (g *Game) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, GameSpace)
	out = append(out, GameDiscriminator[:]...)
	out = append(out, g.Player[:]...)
	out = binary.LittleEndian.AppendUint32(out, g.Clicks)
	return out, nil
}

func (g *Game) UnmarshalBinary(data []byte) error {
	if len(data) != GameSpace {
		return fmt.Errorf("game is %d bytes, want %d: %w", len(data), GameSpace, core.ErrInvalidDataLength)
	}
	if !bytes.Equal(data[:core.DiscriminatorSize], GameDiscriminator[:]) {
		return fmt.Errorf("not a game: %w", core.ErrAccountDiscriminant)
	}
	body := data[core.DiscriminatorSize:]
	copy(g.Player[:], body[:32])
	g.Clicks = binary.LittleEndian.Uint32(body[32:])
	return nil
}

type account interface {
	ID() core.Address
	Owner() core.Address
	Data() []byte
}

// LoadGame decodes acc after checking it belongs to program.
func LoadGame(acc account, program core.Address) (*Game, error) {
	if acc.Owner() != program {
		return nil, fmt.Errorf("game %s owned by %s: %w", acc.ID(), acc.Owner(), core.ErrInvalidOwner)
	}
	var g Game
	if err := g.UnmarshalBinary(acc.Data()); err != nil {
		return nil, fmt.Errorf("game %s: %w", acc.ID(), err)
	}
	return &g, nil
}
