package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/playmatatu/balldrop/internal/config"
	"github.com/playmatatu/balldrop/internal/game"
	"github.com/playmatatu/balldrop/internal/render"
)

var (
	modeFlag  = flag.String("mode", "creative", "Bottom boundary: creative or challenge")
	themeFlag = flag.String("theme", "light", "Palette: light or dark")
	loadFlag  = flag.String("load", "", "Save file to start from")
	saveFlag  = flag.String("save", "", "Write the layout to this file on exit")
)

func main() {
	flag.Parse()
	cfg := config.Load()

	mode, err := game.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v: %s\n", err, *modeFlag)
		os.Exit(2)
	}
	theme, err := game.ParseTheme(*themeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v: %s\n", err, *themeFlag)
		os.Exit(2)
	}

	var initial *game.SaveFile
	if *loadFlag != "" {
		data, err := os.ReadFile(*loadFlag)
		if err == nil {
			initial, err = game.ParseSaveFile(data)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", *loadFlag, err)
			os.Exit(1)
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	screen.EnableMouse()

	// Only the newest frame matters; the session must never wait on drawing.
	frames := make(chan game.Frame, 1)
	sink := game.FrameSinkFunc(func(_ string, f game.Frame) {
		select {
		case frames <- f:
		default:
			select {
			case <-frames:
			default:
			}
			select {
			case frames <- f:
			default:
			}
		}
	})

	s := game.NewSession("local", 0, game.Options{
		Mode:      mode,
		Theme:     theme,
		SpawnRate: cfg.DefaultSpawnRate,
	}, sink, game.SessionConfig{FrameRate: cfg.FrameRate, BroadcastRate: cfg.BroadcastRate})

	ctx := context.Background()
	if initial != nil {
		if _, err := s.Execute(ctx, game.Load{Save: initial}); err != nil {
			screen.Fini()
			s.Stop()
			fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", *loadFlag, err)
			os.Exit(1)
		}
	}

	saved := run(ctx, screen, s, frames)
	screen.Fini()
	s.Stop()

	if *saveFlag != "" && saved != nil {
		data, err := saved.MarshalIndent()
		if err == nil {
			err = os.WriteFile(*saveFlag, data, 0o644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save %s: %v\n", *saveFlag, err)
			os.Exit(1)
		}
		fmt.Printf("Saved %d shapes to %s\n", len(saved.Shapes), *saveFlag)
	}
}

// run draws frames and feeds input to the session until the user quits, then
// returns the final save.
func run(ctx context.Context, screen tcell.Screen, s *game.Session, frames <-chan game.Frame) *game.SaveFile {
	r := render.NewRenderer(screen)
	in := render.NewInput(r)

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	var last game.Frame
	if res, err := s.Execute(ctx, game.Snapshot{}); err == nil && res.Frame != nil {
		last = *res.Frame
	}
	r.Draw(last, render.StatusLine(last, in.Tool()))

	for {
		select {
		case f := <-frames:
			last = f
			r.Draw(last, render.StatusLine(last, in.Tool()))

		case ev := <-events:
			if _, ok := ev.(*tcell.EventResize); ok {
				screen.Sync()
				r.Draw(last, render.StatusLine(last, in.Tool()))
				continue
			}
			cmds, quit := in.Handle(ev, last)
			if quit {
				cctx, cancel := context.WithTimeout(ctx, time.Second)
				defer cancel()
				res, err := s.Execute(cctx, game.Save{})
				if err != nil {
					return nil
				}
				return res.Save
			}
			for _, c := range cmds {
				if _, err := s.Execute(ctx, c); err != nil {
					break
				}
			}
			// The tool shows in the status line even when no command ran.
			r.Draw(last, render.StatusLine(last, in.Tool()))
		}
	}
}
