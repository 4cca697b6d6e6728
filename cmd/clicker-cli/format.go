package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/govm-net/clicker/clicker"
	"github.com/govm-net/clicker/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const lamportsPerSOL = 1_000_000_000

// lamports renders an amount as "1,197,120 lamports (0.00119712 SOL)".
func lamports(n uint64) string {
	return fmt.Sprintf("%s lamports (%s SOL)", humanize.Comma(int64(n)), sol(n))
}

// sol renders n lamports in SOL without going through floats.
func sol(n uint64) string {
	whole := humanize.Comma(int64(n / lamportsPerSOL))
	frac := strings.TrimRight(fmt.Sprintf("%09d", n%lamportsPerSOL), "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

func (a *app) formatLeaderboard(board []clicker.LeaderboardEntry, me core.Address) string {
	var sb strings.Builder
	title := cases.Title(language.English).String(string(a.program.Variant()) + " leaderboard")
	sb.WriteString(title + "\n")
	if len(board) == 0 {
		sb.WriteString("No games yet\n")
		return sb.String()
	}
	for _, e := range board {
		who := clicker.ShortAddress(e.Player)
		if e.Player == me {
			who = "You"
		}
		sb.WriteString(a.printer.Sprintf("%-4s %-10s %d\n", humanize.Ordinal(e.Rank), who, e.Clicks))
	}
	return sb.String()
}
