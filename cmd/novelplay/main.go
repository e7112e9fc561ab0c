/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"novelplay/internal/audio"
	"novelplay/internal/config"
	"novelplay/internal/container"
	"novelplay/internal/crash"
	applog "novelplay/internal/log"
	"novelplay/internal/player"
	"novelplay/internal/progress"
	"novelplay/internal/remote"
	"novelplay/internal/telemetry"
	"novelplay/internal/version"
)

func usage() {
	fmt.Println("NovelPlay — visual novel player")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  novelplay [flags] <story file>         Play a story (press Enter to advance)")
	fmt.Println("  novelplay version|-v|--version          Show version")
	fmt.Println("  novelplay saves                         List stories with saved progress")
	fmt.Println("  novelplay forget-license                Remove the stored license key")
	fmt.Println()
	flag.PrintDefaults()
}

func main() {
	cfg, licenseKey, _ := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")

	var storyTitle string
	var saveHook crash.Autosave
	defer func() { crash.Recover(storyTitle, saveHook) }()

	chapter := flag.String("chapter", "", "chapter to start at (requires -scene)")
	scene := flag.String("scene", "", "scene to start at (requires -chapter)")
	resume := flag.Bool("resume", false, "resume from the story's saved progress")
	fps := flag.Int("fps", 0, "frame rate override")
	flag.Usage = usage
	flag.Parse()

	switch flag.Arg(0) {
	case "":
		usage()
		os.Exit(2)
	case "version", "--version", "-v":
		fmt.Println(version.String())
		return
	case "saves":
		listSaves(l)
		return
	case "forget-license":
		if err := config.ForgetLicenseKey(); err != nil {
			l.Error("forget license failed", slog.Any("err", err))
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		fmt.Println("License key removed.")
		return
	}

	frameRate := cfg.Playback.FPS
	if *fps > 0 {
		frameRate = *fps
	}
	if frameRate <= 0 {
		frameRate = 60
	}

	code := play(l, cfg, licenseKey, flag.Arg(0), *chapter, *scene, *resume, frameRate, &storyTitle, &saveHook)
	telemetry.Flush(context.Background())
	os.Exit(code)
}

func listSaves(l *slog.Logger) {
	path, err := progress.DefaultPath()
	if err != nil {
		l.Error("resolve progress path failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	store, err := progress.Open(path)
	if err != nil {
		l.Error("open progress store failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	defer store.Close()

	titles, err := store.Titles(context.Background())
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	if len(titles) == 0 {
		fmt.Println("No saved progress.")
		return
	}
	for _, t := range titles {
		fmt.Println(t)
	}
}

func play(l *slog.Logger, cfg config.PlayerConfig, licenseKey, file, chapter, scene string, resume bool, frameRate int, storyTitle *string, saveHook *crash.Autosave) int {
	c, err := container.Open(file)
	if err != nil {
		l.Error("open story failed", slog.String("file", file), slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	*storyTitle = c.General().Title()
	telemetry.Event("story_started", nil)

	am := audio.NewManager()
	if err := am.Init(); err != nil {
		// No audio device is not fatal; the story plays silently.
		l.Warn("audio unavailable", slog.Any("err", err))
	}
	am.SetMuted(cfg.Playback.Mute)
	am.SetVolume(audio.Music, float64(cfg.Volume.Music)/100)
	am.SetVolume(audio.FX, float64(cfg.Volume.FX)/100)
	am.SetVolume(audio.Voice, float64(cfg.Volume.Voice)/100)
	am.SetVolume(audio.Text, float64(cfg.Volume.Text)/100)

	story := player.NewStory(c, am)

	if cfg.Remote.Enabled && cfg.Remote.BaseURL != "" {
		client := remote.NewClient(
			cfg.Remote.BaseURL,
			licenseKey,
			*storyTitle,
			time.Duration(cfg.Remote.TimeoutMs)*time.Millisecond,
			cfg.Remote.TLSInsecure,
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		resp, err := client.Verify(ctx)
		cancel()
		if err != nil || !resp.Code.OK() {
			l.Error("license verification failed",
				slog.String("code", string(resp.Code)),
				slog.Any("err", err),
			)
			fmt.Println("This story could not verify its license:", resp.Code)
			return 1
		}
		story.Remote = remote.NewWorker(client, story.Queue)
	}

	storePath, err := progress.DefaultPath()
	if err != nil {
		l.Error("resolve progress path failed", slog.Any("err", err))
		return 1
	}
	store, err := progress.Open(storePath)
	if err != nil {
		l.Error("open progress store failed", slog.Any("err", err))
		return 1
	}
	defer store.Close()

	if resume && chapter == "" {
		snap, err := store.Load(context.Background(), *storyTitle)
		switch {
		case errors.Is(err, progress.ErrNoProgress):
			l.Info("no saved progress, starting fresh")
		case err != nil:
			l.Error("load progress failed", slog.Any("err", err))
		default:
			chapter, scene = snap.Chapter, snap.Scene
			for name, value := range snap.Variables {
				if err := story.Vars.Set(name, value); err != nil {
					l.Warn("saved variable rejected", slog.String("name", name), slog.Any("err", err))
				}
			}
		}
	}

	saveProgress := func() (string, error) {
		ch, sc := story.Position()
		if ch == "" {
			return storePath, nil
		}
		err := store.Save(context.Background(), progress.Snapshot{
			StoryTitle: *storyTitle,
			Chapter:    ch,
			Scene:      sc,
			Variables:  story.Vars.Snapshot(),
		})
		return storePath, err
	}
	*saveHook = saveProgress

	if err := story.Start(chapter, scene); err != nil {
		l.Error("start story failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}

	code := run(l, story, frameRate)

	if _, err := saveProgress(); err != nil {
		l.Error("save progress failed", slog.Any("err", err))
	}
	telemetry.Event("story_finished", nil)
	return code
}

// run drives the frame loop: a ticker at the configured rate, viewer input
// on stdin, dialog on stdout.
func run(l *slog.Logger, story *player.Story, frameRate int) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Enter advances past a halt; EOF behaves like an interrupt.
	input := make(chan struct{})
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			input <- struct{}{}
		}
		close(input)
	}()

	ticker := time.NewTicker(time.Second / time.Duration(frameRate))
	defer ticker.Stop()

	printed := 0
	last := time.Now()
	for !story.Finished() {
		select {
		case <-ctx.Done():
			l.Info("interrupted, saving progress")
			return 0
		case _, ok := <-input:
			if !ok {
				l.Info("input closed, saving progress")
				return 0
			}
			story.Advance()
		case now := <-ticker.C:
			story.Update(now.Sub(last).Seconds())
			last = now
			for ; printed < len(story.Dialog); printed++ {
				fmt.Println(story.Dialog[printed])
			}
		}
	}
	return 0
}
