/*
Copyright (c) 2025-2026 Cronan

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/afero"

	"github.com/Cronan/zx81-chess/emulator"
	"github.com/Cronan/zx81-chess/emulator/memory"
	"github.com/Cronan/zx81-chess/emulator/peripheral/display"
	"github.com/Cronan/zx81-chess/emulator/peripheral/keyboard"
	"github.com/Cronan/zx81-chess/emulator/tape"
	"github.com/Cronan/zx81-chess/version"
)

var (
	tapeImage = "chess.p"
	binImage  = "chess.bin"

	moves, genP string
	budget      = 50000000
	org         int
)

var (
	play,
	ver bool
)

func init() {
	flag.BoolVar(&ver, "v", false, "Print version information")
	flag.BoolVar(&play, "play", false, "Play interactively in the terminal")

	flag.StringVar(&tapeImage, "tape", tapeImage, "Path to tape image (.p or .bin)")
	flag.StringVar(&moves, "moves", "", "Feed moves to the engine, e.g. \"E2E4,D7D5\"")
	flag.IntVar(&budget, "cycles", budget, "Cycle budget per engine reply")
	flag.IntVar(&org, "org", 0, "Override the tape entry address")

	flag.StringVar(&genP, "gen-p", "", "Create a .P tape from a raw binary")
	flag.StringVar(&binImage, "bin", binImage, "Raw binary used with -gen-p")
}

func main() {
	flag.Parse()

	if ver {
		fmt.Printf("%s\n", version.Current.FullString())
		return
	}

	fs := afero.NewOsFs()

	if genP != "" {
		code, err := afero.ReadFile(fs, binImage)
		if err != nil {
			log.Fatal(err)
		}
		if err := tape.Create(fs, genP, code); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Created %s from %s (%d bytes of code)\n", genP, binImage, len(code))
		return
	}

	img, err := tape.Load(fs, tapeImage)
	if err != nil {
		log.Fatal(err)
	}
	if org != 0 {
		img.Entry = memory.Pointer(org)
	}

	m := emulator.New()
	defer m.Close()
	m.Load(img)

	if play {
		printLogo()
		term, err := display.NewTerminal(m.Keys())
		if err != nil {
			log.Fatal(err)
		}
		if err := m.RunInteractive(term); err != nil {
			term.Close()
			log.Fatal(err)
		}
		term.Close()
		return
	}

	runBatch(m)
}

// runBatch boots the tape, plays the requested moves and prints the
// board after each engine reply.
func runBatch(m *emulator.Machine) {
	if err := m.RunUntilIdle(budget); err != nil {
		log.Fatal(err)
	}
	printBoard(m)

	for _, move := range parseMoves(moves) {
		fmt.Printf("\n> %s\n", move)
		for _, r := range move {
			code, ok := keyboard.Encode(r)
			if !ok {
				log.Fatalf("%q is not a ZX81 key", r)
			}
			if err := m.Keys().Enqueue(code); err != nil {
				log.Fatal(err)
			}
		}
		if err := m.RunUntilIdle(budget); err != nil {
			log.Fatal(err)
		}
		printBoard(m)
	}
}

func parseMoves(s string) []string {
	var out []string
	for _, m := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	}) {
		out = append(out, strings.TrimSpace(m))
	}
	return out
}

func printBoard(m *emulator.Machine) {
	grid := m.Snapshot()
	fmt.Print(grid.String())
}

func printLogo() {
	fmt.Print(logo)
	fmt.Println("v" + version.Current.String())
	fmt.Println(" ────── " + version.Copyright + " ──────")
}

var logo = `
███████╗██╗  ██╗ █████╗  ██╗     ██████╗██╗  ██╗███████╗███████╗███████╗
╚══███╔╝╚██╗██╔╝██╔══██╗███║    ██╔════╝██║  ██║██╔════╝██╔════╝██╔════╝
  ███╔╝  ╚███╔╝ ╚█████╔╝╚██║    ██║     ███████║█████╗  ███████╗███████╗
 ███╔╝   ██╔██╗ ██╔══██╗ ██║    ██║     ██╔══██║██╔══╝  ╚════██║╚════██║
███████╗██╔╝ ██╗╚█████╔╝ ██║    ╚██████╗██║  ██║███████╗███████║███████║
╚══════╝╚═╝  ╚═╝ ╚════╝  ╚═╝     ╚═════╝╚═╝  ╚═╝╚══════╝╚══════╝╚══════╝
`
