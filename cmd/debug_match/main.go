// debug_match locates one template in a saved screenshot and writes the
// best matching region next to it, to check why a node does or does not
// match.
//
//	debug_match <screenshot.png> <template.png|map-dir>
package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/ConserveLee/mapwalk/internal/constants"
	"github.com/ConserveLee/mapwalk/internal/engine/screen"
	"github.com/vcaesar/imgo"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Println("usage: debug_match <screenshot.png> <template.png|map-dir>")
		os.Exit(2)
	}

	screenImg, err := screen.LoadGray(os.Args[1])
	if err != nil {
		fmt.Printf("Failed to load screen: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Screen size: %dx%d\n", screenImg.Bounds().Dx(), screenImg.Bounds().Dy())
	if screenImg.Bounds().Dx() != constants.ReferenceWidth || screenImg.Bounds().Dy() != constants.ReferenceHeight {
		screenImg = screen.ScaleGray(screenImg, constants.ReferenceWidth, constants.ReferenceHeight)
		fmt.Printf("Scaled to reference %dx%d\n", constants.ReferenceWidth, constants.ReferenceHeight)
	}

	templates, err := templateFiles(os.Args[2])
	if err != nil {
		fmt.Printf("Failed to list templates: %v\n", err)
		os.Exit(1)
	}

	scorer := screen.DefaultScorer()
	for _, tplPath := range templates {
		tpl, err := screen.LoadGray(tplPath)
		if err != nil {
			fmt.Printf("Failed to load template %s: %v\n", tplPath, err)
			continue
		}
		name := strings.TrimSuffix(filepath.Base(tplPath), filepath.Ext(tplPath))
		fmt.Printf("\n=== %s (%dx%d) ===\n", name, tpl.Bounds().Dx(), tpl.Bounds().Dy())

		fast := scorer.Score(screenImg, tpl)
		exact, at := screen.MatchNCC(screenImg, tpl)
		fmt.Printf("  default scorer: %.4f\n", fast)
		fmt.Printf("  exhaustive NCC: %.4f at %v\n", exact, at)

		region := image.Rectangle{Min: at, Max: at.Add(tpl.Bounds().Size())}
		out := fmt.Sprintf("debug_match_%s.png", name)
		if err := imgo.Save(out, screenImg.SubImage(region)); err != nil {
			fmt.Printf("  failed to save %s: %v\n", out, err)
			continue
		}
		fmt.Printf("  best region saved to %s\n", out)
	}
}

func templateFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	return filepath.Glob(filepath.Join(path, "*.png"))
}
