/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package audio plays story sounds on four logical channels: music, fx,
// voice and text. Asset bytes come from the container; this package only
// sees names, bytes and extensions.
package audio

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

const sampleRate = beep.SampleRate(44100)

// Channel is one of the four logical playback slots, or All for stop
// requests that target every channel.
type Channel int

const (
	Music Channel = iota
	FX
	Voice
	Text
	All
)

func (c Channel) String() string {
	switch c {
	case Music:
		return "music"
	case FX:
		return "fx"
	case Voice:
		return "voice"
	case Text:
		return "text"
	case All:
		return "all"
	}
	return "unknown"
}

// sink is the playback backend. The real implementation forwards to the
// beep speaker; tests substitute a silent one.
type sink interface {
	Init(sr beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Lock()
	Unlock()
}

type beepSink struct{}

func (beepSink) Init(sr beep.SampleRate, bufferSize int) error { return speaker.Init(sr, bufferSize) }
func (beepSink) Play(s beep.Streamer)                          { speaker.Play(s) }
func (beepSink) Lock()                                         { speaker.Lock() }
func (beepSink) Unlock()                                       { speaker.Unlock() }

// channelState is the per-channel slot: the sound last decoded for it, the
// control node of whatever is playing, and the channel volume.
type channelState struct {
	loadedName string
	buffer     *beep.Buffer
	ctrl       *beep.Ctrl
	volumeCtl  *effects.Volume
	playing    bool
	volume     float64
	loop       bool
}

// Manager owns the four channels. All methods are safe to call from the
// main loop; the mutex guards against the speaker's own goroutine touching
// channel state through playback-finished callbacks.
type Manager struct {
	mu          sync.Mutex
	out         sink
	channels    [4]channelState
	initialized bool
	muted       bool
}

// NewManager builds a manager with every channel at full volume.
func NewManager() *Manager {
	m := &Manager{out: beepSink{}}
	for i := range m.channels {
		m.channels[i].volume = 1.0
	}
	return m
}

// Init opens the speaker. Safe to call more than once.
func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	if err := m.out.Init(sampleRate, sampleRate.N(time.Millisecond*100)); err != nil {
		return fmt.Errorf("open speaker: %w", err)
	}
	m.initialized = true
	return nil
}

// Play starts the named sound on a channel.
//
// Music: a request for the sound already playing is a no-op, so a script
// that re-issues its play command does not make the music jump. A different
// name stops the current music and starts the new one.
//
// FX, voice and text always restart from the beginning, even for the sound
// already playing. The decode is skipped when the name matches the channel's
// last loaded sound; the cached buffer is reused.
func (m *Manager) Play(ch Channel, name string, data []byte, ext string, loop bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized || ch == All {
		return nil
	}
	c := &m.channels[ch]

	if ch == Music && c.playing && c.loadedName == name {
		return nil
	}
	m.stopChannel(c)

	if c.loadedName != name || c.buffer == nil {
		buf, err := decode(data, ext)
		if err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		c.buffer = buf
		c.loadedName = name
	}
	c.loop = ch == Music && loop
	m.startChannel(ch, c)
	return nil
}

// startChannel builds the streamer chain for the channel's buffered sound
// and hands it to the speaker. Caller holds m.mu.
func (m *Manager) startChannel(ch Channel, c *channelState) {
	var streamer beep.Streamer = c.buffer.Streamer(0, c.buffer.Len())
	if c.loop {
		s, err := beep.Loop2(c.buffer.Streamer(0, c.buffer.Len()))
		if err == nil {
			streamer = s
		}
	}

	done := make(chan struct{})
	streamer = beep.Seq(streamer, beep.Callback(func() { close(done) }))

	c.volumeCtl = &effects.Volume{
		Streamer: streamer,
		Base:     2,
		Volume:   volumeExponent(c.volume),
		Silent:   c.volume == 0 || m.muted,
	}
	c.ctrl = &beep.Ctrl{Streamer: c.volumeCtl}
	c.playing = true

	ctrl := c.ctrl
	go func() {
		<-done
		m.mu.Lock()
		if c.ctrl == ctrl {
			c.playing = false
		}
		m.mu.Unlock()
	}()

	m.out.Play(c.ctrl)
}

// Stop silences one channel, or every channel for All.
func (m *Manager) Stop(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch == All {
		for i := range m.channels {
			m.stopChannel(&m.channels[i])
		}
		return
	}
	m.stopChannel(&m.channels[ch])
}

// stopChannel pauses the channel's control node so the mixer drains it
// silently. Caller holds m.mu.
func (m *Manager) stopChannel(c *channelState) {
	if c.ctrl == nil {
		return
	}
	m.out.Lock()
	c.ctrl.Paused = true
	m.out.Unlock()
	c.ctrl = nil
	c.volumeCtl = nil
	c.playing = false
}

// SetVolume sets a channel's volume in [0, 1], applying it to the sound
// currently playing as well as future ones.
func (m *Manager) SetVolume(ch Channel, v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ch == All {
		for i := range m.channels {
			m.setChannelVolume(&m.channels[i], v)
		}
		return
	}
	m.setChannelVolume(&m.channels[ch], v)
}

func (m *Manager) setChannelVolume(c *channelState, v float64) {
	c.volume = v
	if c.volumeCtl == nil {
		return
	}
	m.out.Lock()
	c.volumeCtl.Volume = volumeExponent(v)
	c.volumeCtl.Silent = v == 0 || m.muted
	m.out.Unlock()
}

// SetMuted silences all channels without losing their volume settings.
func (m *Manager) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.muted = muted
	for i := range m.channels {
		c := &m.channels[i]
		if c.volumeCtl == nil {
			continue
		}
		m.out.Lock()
		c.volumeCtl.Silent = muted || c.volume == 0
		m.out.Unlock()
	}
}

// Volume returns a channel's configured volume.
func (m *Manager) Volume(ch Channel) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch == All {
		return 0
	}
	return m.channels[ch].volume
}

// Playing reports whether a channel currently has an unfinished sound.
func (m *Manager) Playing(ch Channel) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch == All {
		return false
	}
	return m.channels[ch].playing
}

// LoadedName returns the name of the sound last decoded for a channel.
func (m *Manager) LoadedName(ch Channel) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch == All {
		return ""
	}
	return m.channels[ch].loadedName
}

// volumeExponent maps a linear [0, 1] volume to the exponent the effects
// node expects. Zero is handled by the Silent flag, not here.
func volumeExponent(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log2(v)
}

// decode turns raw asset bytes into a fully buffered sound, so every replay
// starts at the beginning. The decoder is chosen by file extension; the
// stream is resampled when its rate differs from the speaker's.
func decode(data []byte, ext string) (*beep.Buffer, error) {
	rc := io.NopCloser(bytes.NewReader(data))

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch strings.ToLower(ext) {
	case ".wav":
		streamer, format, err = wav.Decode(rc)
	case ".ogg":
		streamer, format, err = vorbis.Decode(rc)
	case ".mp3":
		streamer, format, err = mp3.Decode(rc)
	case ".flac":
		streamer, format, err = flac.Decode(rc)
	default:
		return nil, fmt.Errorf("unsupported audio extension %q", ext)
	}
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	var src beep.Streamer = streamer
	if format.SampleRate != sampleRate {
		src = beep.Resample(4, format.SampleRate, sampleRate, streamer)
		format.SampleRate = sampleRate
	}

	buf := beep.NewBuffer(format)
	buf.Append(src)
	return buf, nil
}
