/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package container reads compiled story files. A container is a single
// binary blob: asset bytes, then two JSON headers, then a 50-byte footer
// locating the headers. The container buffer is loaded once and all asset
// reads are sub-slices of it.
package container

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"novelplay/internal/domain"
	applog "novelplay/internal/log"
)

// Load failure modes. Fatal to starting a story; never retried here.
var (
	ErrNotFound = errors.New("story file not found")
	ErrNotAFile = errors.New("expected a story file, got a directory")
	ErrCorrupt  = errors.New("invalid or corrupted story file")
)

// footerSize is the fixed width of the trailing header locator.
const footerSize = 50

// padByte fills the footer after each byte-range pair.
const padByte = 'X'

// AssetRange is a half-open byte range into the container buffer.
type AssetRange struct {
	From int
	To   int
}

// Len returns the number of bytes the range covers.
func (r AssetRange) Len() int { return r.To - r.From }

// Container owns the story file bytes and both decoded headers for the
// lifetime of the running story.
type Container struct {
	path    string
	data    []byte
	detail  domain.DetailHeader
	general domain.GeneralHeader

	caches map[ContentType]map[string]*Sprite
}

// Open reads and parses a compiled story file.
func Open(path string) (*Container, error) {
	l := applog.WithComponent("container")

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := &Container{
		path:   path,
		data:   data,
		caches: map[ContentType]map[string]*Sprite{},
	}
	if err := c.parseHeaders(); err != nil {
		return nil, err
	}

	l.Info("story container opened",
		slog.String("path", path),
		slog.Int("bytes", len(data)),
		slog.String("title", c.general.Title()),
	)
	return c, nil
}

// parseHeaders locates and decodes the detail and general headers using the
// fixed-width footer at the end of the file.
func (c *Container) parseHeaders() error {
	if len(c.data) < footerSize {
		return fmt.Errorf("%w: file shorter than footer", ErrCorrupt)
	}
	footer := c.data[len(c.data)-footerSize:]

	detail, general, err := parseFooter(footer)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !c.rangeValid(detail) || !c.rangeValid(general) {
		return fmt.Errorf("%w: header range outside file", ErrCorrupt)
	}

	detailBytes := c.data[detail.From:detail.To]
	generalBytes := c.data[general.From:general.To]

	if err := json.Unmarshal(detailBytes, &c.detail); err != nil {
		return fmt.Errorf("%w: detail header: %v", ErrCorrupt, err)
	}
	if err := json.Unmarshal(generalBytes, &c.general); err != nil {
		return fmt.Errorf("%w: general header: %v", ErrCorrupt, err)
	}

	// The schema check only warns; a header that unmarshals but looks odd
	// should not block playback of older stories.
	if err := validateGeneralHeader(generalBytes); err != nil {
		applog.WithComponent("container").Warn("general header failed schema check", slog.Any("err", err))
	}
	return nil
}

func (c *Container) rangeValid(r AssetRange) bool {
	return r.From >= 0 && r.From <= r.To && r.To <= len(c.data)
}

// parseFooter scans the 50-byte footer pattern:
// "{from}-{to}" + padding + "{from}-{to}" + padding.
// The padding is a run of the filler byte; everything else must be digits and
// the two dashes, otherwise the footer does not match.
func parseFooter(b []byte) (detail, general AssetRange, err error) {
	pos := 0

	readRange := func() (AssetRange, error) {
		from, ok := readInt(b, &pos)
		if !ok {
			return AssetRange{}, errors.New("footer: expected digits")
		}
		if pos >= len(b) || b[pos] != '-' {
			return AssetRange{}, errors.New("footer: expected '-'")
		}
		pos++
		to, ok := readInt(b, &pos)
		if !ok {
			return AssetRange{}, errors.New("footer: expected digits after '-'")
		}
		return AssetRange{From: from, To: to}, nil
	}
	readPadding := func() error {
		if pos >= len(b) || b[pos] != padByte {
			return errors.New("footer: expected padding")
		}
		for pos < len(b) && b[pos] == padByte {
			pos++
		}
		return nil
	}

	if detail, err = readRange(); err != nil {
		return
	}
	if err = readPadding(); err != nil {
		return
	}
	if general, err = readRange(); err != nil {
		return
	}
	if err = readPadding(); err != nil {
		return
	}
	if pos != len(b) {
		err = errors.New("footer: trailing bytes after padding")
	}
	return
}

// readInt consumes a run of ASCII digits at *pos.
func readInt(b []byte, pos *int) (int, bool) {
	start := *pos
	n := 0
	for *pos < len(b) && b[*pos] >= '0' && b[*pos] <= '9' {
		n = n*10 + int(b[*pos]-'0')
		*pos++
	}
	return n, *pos > start
}

// Detail returns the decoded detail header.
func (c *Container) Detail() *domain.DetailHeader { return &c.detail }

// General returns the decoded general header.
func (c *Container) General() *domain.GeneralHeader { return &c.general }

// AssetBytes returns the raw bytes of a named asset, or false when the
// content type or name is unknown. The returned slice aliases the container
// buffer; callers must not modify it.
func (c *Container) AssetBytes(ct ContentType, name string) ([]byte, bool) {
	entry, ok := c.assetEntry(ct, name)
	if !ok {
		return nil, false
	}
	r, err := parseRange(entry.Range)
	if err != nil || !c.rangeValid(r) {
		return nil, false
	}
	return c.data[r.From:r.To], true
}

// AssetExtension returns the stored file extension for a named asset.
func (c *Container) AssetExtension(ct ContentType, name string) (string, bool) {
	entry, ok := c.assetEntry(ct, name)
	if !ok {
		return "", false
	}
	return entry.Extension, true
}

func (c *Container) assetEntry(ct ContentType, name string) (domain.AssetEntry, bool) {
	section := c.section(ct)
	if section == nil {
		return domain.AssetEntry{}, false
	}
	entry, ok := section[name]
	return entry, ok
}

func (c *Container) section(ct ContentType) map[string]domain.AssetEntry {
	switch ct {
	case Character:
		return c.detail.Characters
	case Object:
		return c.detail.Objects
	case Background:
		return c.detail.Backgrounds
	case FontSheet:
		return c.detail.FontSheets
	case DialogSprite:
		return c.detail.DialogSprites
	case Audio:
		return c.detail.Audio
	case Music:
		return c.detail.Music
	}
	return nil
}

// PosterImage returns the launch poster bytes from the general header, or
// false when the story has no poster.
func (c *Container) PosterImage() ([]byte, bool) {
	entry := c.general.PosterTitleImageEntry
	if entry == nil {
		return nil, false
	}
	r, err := parseRange(entry.Range)
	if err != nil || !c.rangeValid(r) {
		return nil, false
	}
	return c.data[r.From:r.To], true
}

// parseRange parses an asset range string such as "157434-217093".
func parseRange(s string) (AssetRange, error) {
	b := []byte(s)
	pos := 0
	from, ok := readInt(b, &pos)
	if !ok {
		return AssetRange{}, fmt.Errorf("range %q: expected digits", s)
	}
	if pos >= len(b) || b[pos] != '-' {
		return AssetRange{}, fmt.Errorf("range %q: expected '-'", s)
	}
	pos++
	to, ok := readInt(b, &pos)
	if !ok || pos != len(b) {
		return AssetRange{}, fmt.Errorf("range %q: expected trailing digits", s)
	}
	return AssetRange{From: from, To: to}, nil
}
