/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package audio

import (
	"bytes"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/gopxl/beep/v2"
)

// fakeSink records played streamers instead of opening a real speaker.
type fakeSink struct {
	mu     sync.Mutex
	played []beep.Streamer
}

func (f *fakeSink) Init(beep.SampleRate, int) error { return nil }
func (f *fakeSink) Lock()                           {}
func (f *fakeSink) Unlock()                         {}

func (f *fakeSink) Play(s beep.Streamer) {
	f.mu.Lock()
	f.played = append(f.played, s)
	f.mu.Unlock()
}

func (f *fakeSink) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.played)
}

func newTestManager(t *testing.T) (*Manager, *fakeSink) {
	t.Helper()
	sink := &fakeSink{}
	m := NewManager()
	m.out = sink
	if err := m.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return m, sink
}

// wavBytes builds a minimal 16-bit mono PCM wav at the speaker rate.
func wavBytes(t *testing.T, numSamples int) []byte {
	t.Helper()
	var data bytes.Buffer
	for i := 0; i < numSamples; i++ {
		binary.Write(&data, binary.LittleEndian, int16(i*64))
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(int(sampleRate)*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())
	return buf.Bytes()
}

func TestMusicSuppressesSameNameReplay(t *testing.T) {
	m, sink := newTestManager(t)
	theme := wavBytes(t, 256)

	if err := m.Play(Music, "theme", theme, ".wav", false); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if sink.playCount() != 1 || !m.Playing(Music) {
		t.Fatalf("first play: count %d, playing %v", sink.playCount(), m.Playing(Music))
	}

	// Same name while playing: no restart.
	if err := m.Play(Music, "theme", theme, ".wav", false); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if sink.playCount() != 1 {
		t.Fatalf("same-name music replay restarted playback")
	}

	// Different name: the current music stops and the new one starts.
	if err := m.Play(Music, "battle", wavBytes(t, 128), ".wav", false); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if sink.playCount() != 2 || m.LoadedName(Music) != "battle" {
		t.Fatalf("switch: count %d, loaded %q", sink.playCount(), m.LoadedName(Music))
	}
}

func TestFXAlwaysRestarts(t *testing.T) {
	m, sink := newTestManager(t)
	chime := wavBytes(t, 128)

	if err := m.Play(FX, "chime", chime, ".wav", false); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := m.Play(FX, "chime", chime, ".wav", false); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if sink.playCount() != 2 {
		t.Fatalf("same-name fx replay should restart, count %d", sink.playCount())
	}
}

func TestDecodeCachePerChannel(t *testing.T) {
	m, _ := newTestManager(t)
	chime := wavBytes(t, 128)

	if err := m.Play(Voice, "chime", chime, ".wav", false); err != nil {
		t.Fatalf("Play: %v", err)
	}
	buf := m.channels[Voice].buffer
	if buf == nil {
		t.Fatalf("no buffer cached")
	}

	// Replaying the same name reuses the decoded buffer.
	if err := m.Play(Voice, "chime", chime, ".wav", false); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if m.channels[Voice].buffer != buf {
		t.Fatalf("same-name replay re-decoded the sound")
	}

	// A different name replaces it.
	if err := m.Play(Voice, "other", wavBytes(t, 64), ".wav", false); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if m.channels[Voice].buffer == buf {
		t.Fatalf("new name should decode a new buffer")
	}
}

func TestStopAndStopAll(t *testing.T) {
	m, _ := newTestManager(t)
	snd := wavBytes(t, 64)

	for _, ch := range []Channel{Music, FX, Voice, Text} {
		if err := m.Play(ch, "s", snd, ".wav", false); err != nil {
			t.Fatalf("Play(%v): %v", ch, err)
		}
	}
	m.Stop(FX)
	if m.Playing(FX) {
		t.Fatalf("fx should be stopped")
	}
	if !m.Playing(Music) || !m.Playing(Voice) {
		t.Fatalf("stopping fx must not stop other channels")
	}

	m.Stop(All)
	for _, ch := range []Channel{Music, FX, Voice, Text} {
		if m.Playing(ch) {
			t.Fatalf("channel %v still playing after StopAll", ch)
		}
	}
}

func TestSetVolumeClamps(t *testing.T) {
	m, _ := newTestManager(t)
	m.SetVolume(FX, 1.5)
	if got := m.Volume(FX); got != 1.0 {
		t.Fatalf("volume = %v, want clamp to 1", got)
	}
	m.SetVolume(FX, -0.5)
	if got := m.Volume(FX); got != 0.0 {
		t.Fatalf("volume = %v, want clamp to 0", got)
	}
	m.SetVolume(FX, 0.25)
	if got := m.Volume(FX); got != 0.25 {
		t.Fatalf("volume = %v", got)
	}
}

func TestPlayUnsupportedExtension(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Play(FX, "x", []byte("not audio"), ".mid", false); err == nil {
		t.Fatalf("unsupported extension should error")
	}
}

func TestPlayBeforeInitIsNoop(t *testing.T) {
	m := NewManager()
	m.out = &fakeSink{}
	if err := m.Play(FX, "x", wavBytes(t, 16), ".wav", false); err != nil {
		t.Fatalf("uninitialized play should be a silent no-op, got %v", err)
	}
	if m.Playing(FX) {
		t.Fatalf("nothing should play before Init")
	}
}
