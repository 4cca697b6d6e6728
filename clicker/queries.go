package clicker

import (
	"log/slog"
	"sort"

	"github.com/govm-net/clicker/core"
	"github.com/govm-net/clicker/types"
	"github.com/samber/lo"
)

// GameAccount is a Game together with its account address.
type GameAccount struct {
	Address core.Address `json:"address"`
	Game
}

// LeaderboardEntry is one ranked game.
type LeaderboardEntry struct {
	Rank   int          `json:"rank"`
	Game   core.Address `json:"game"`
	Player core.Address `json:"player"`
	Clicks uint32       `json:"clicks"`
}

// FetchGame reads the game stored at id.
func FetchGame(bc types.BlockchainContext, program, id core.Address) (*Game, error) {
	obj, err := bc.GetAccount(id)
	if err != nil {
		return nil, err
	}
	return LoadGame(obj, program)
}

// Games lists every game of program ordered by address. Accounts that do
// not decode as games are skipped.
func Games(bc types.BlockchainContext, program core.Address) ([]GameAccount, error) {
	objs, err := bc.AccountsByOwner(program)
	if err != nil {
		return nil, err
	}
	return lo.FilterMap(objs, func(obj types.VMObject, _ int) (GameAccount, bool) {
		g, err := LoadGame(obj, program)
		if err != nil {
			slog.Warn("Skipping account", "address", obj.ID(), "error", err)
			return GameAccount{}, false
		}
		return GameAccount{Address: obj.ID(), Game: *g}, true
	}), nil
}

// GamesByPlayer lists the games player created.
func GamesByPlayer(bc types.BlockchainContext, program, player core.Address) ([]GameAccount, error) {
	games, err := Games(bc, program)
	if err != nil {
		return nil, err
	}
	return lo.Filter(games, func(g GameAccount, _ int) bool {
		return g.Player == player
	}), nil
}

// CurrentGame returns the first game of player, if any.
func CurrentGame(bc types.BlockchainContext, program, player core.Address) (GameAccount, bool, error) {
	games, err := GamesByPlayer(bc, program, player)
	if err != nil {
		return GameAccount{}, false, err
	}
	if len(games) == 0 {
		return GameAccount{}, false, nil
	}
	return games[0], true, nil
}

// Leaderboard ranks games by clicks, highest first; ties keep address
// order. limit <= 0 returns every game.
func Leaderboard(bc types.BlockchainContext, program core.Address, limit int) ([]LeaderboardEntry, error) {
	games, err := Games(bc, program)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(games, func(i, j int) bool {
		return games[i].Clicks > games[j].Clicks
	})
	if limit > 0 {
		games = lo.Subset(games, 0, uint(limit))
	}
	return lo.Map(games, func(g GameAccount, i int) LeaderboardEntry {
		return LeaderboardEntry{
			Rank:   i + 1,
			Game:   g.Address,
			Player: g.Player,
			Clicks: g.Clicks,
		}
	}), nil
}

// ShortAddress abbreviates a base58 address for display, e.g. "0xEdo4..pn3w".
// Base58 keys run from 32 to 44 characters; all of them are abbreviated.
func ShortAddress(addr core.Address) string {
	s := addr.String()
	return "0x" + s[:4] + ".." + s[len(s)-4:]
}
