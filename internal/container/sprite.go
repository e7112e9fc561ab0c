/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package container

import (
	"bytes"
	"image"
	"image/draw"
	"strings"

	"novelplay/internal/domain"

	// Registered image decoders. png/gif keep their alpha channel; the rest
	// decode opaque (see decodeSprite).
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ContentType selects one asset category inside the container.
type ContentType int

const (
	Character ContentType = iota
	Object
	Background
	FontSheet
	DialogSprite
	Audio
	Music
)

func (ct ContentType) String() string {
	switch ct {
	case Character:
		return "character"
	case Object:
		return "object"
	case Background:
		return "background"
	case FontSheet:
		return "font_sheet"
	case DialogSprite:
		return "dialog_sprite"
	case Audio:
		return "audio"
	case Music:
		return "music"
	}
	return "unknown"
}

// Sprite is one decoded image asset. The same instance is handed out for
// repeated plain requests of the same name (identity-preserving reuse).
type Sprite struct {
	Name         string
	GeneralAlias string
	Image        *image.NRGBA
	HasAlpha     bool
}

// FontSprite is a decoded font sprite sheet plus its letter slicing rules.
type FontSprite struct {
	Name       string
	Sheet      *image.NRGBA
	Properties domain.FontSheetProperties
}

// SpriteOptions modify a sprite request.
type SpriteOptions struct {
	// GeneralAlias tags the sprite with a category name (characters only in
	// practice; backgrounds get a fixed alias).
	GeneralAlias string
	// LoadAs forces a fresh instance under a different name. The request
	// bypasses the cache entirely: it neither consults nor populates the
	// original name's slot.
	LoadAs string
}

// alphaExtensions lists image formats whose alpha channel is preserved.
var alphaExtensions = map[string]bool{
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Sprite returns a decoded sprite for character/object/background/dialog
// sprite content types, or nil when the asset does not exist. Plain requests
// are cached per content type; see SpriteOptions.LoadAs for the fresh-copy
// contract.
func (c *Container) Sprite(ct ContentType, name string, opts SpriteOptions) *Sprite {
	switch ct {
	case Character, Object, Background, DialogSprite:
	default:
		return nil
	}

	fresh := opts.LoadAs != ""
	if !fresh {
		if cached, ok := c.caches[ct][name]; ok {
			return cached
		}
	}

	sprite := c.decodeSprite(ct, name)
	if sprite == nil {
		return nil
	}
	sprite.GeneralAlias = opts.GeneralAlias
	if ct == Background {
		sprite.GeneralAlias = "fixed_alias"
	}

	if fresh {
		sprite.Name = opts.LoadAs
		return sprite
	}
	if c.caches[ct] == nil {
		c.caches[ct] = map[string]*Sprite{}
	}
	c.caches[ct][name] = sprite
	return sprite
}

// FontSpriteSheet returns a decoded font sprite sheet. A companion
// FontSpriteProperties entry must exist in the detail header; without it the
// sheet is unusable and nil is returned.
func (c *Container) FontSpriteSheet(name string) *FontSprite {
	props, ok := c.detail.FontProperties[name]
	if !ok {
		return nil
	}
	sprite := c.decodeSprite(FontSheet, name)
	if sprite == nil {
		return nil
	}
	return &FontSprite{Name: name, Sheet: sprite.Image, Properties: props}
}

// decodeSprite slices the asset bytes out of the container and decodes them.
// Alpha-capable extensions keep their alpha channel; other formats decode
// opaque.
func (c *Container) decodeSprite(ct ContentType, name string) *Sprite {
	entry, ok := c.assetEntry(ct, name)
	if !ok {
		return nil
	}
	raw, ok := c.AssetBytes(ct, name)
	if !ok {
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil
	}

	keepAlpha := alphaExtensions[strings.ToLower(entry.Extension)]
	nrgba := toNRGBA(img, keepAlpha)
	return &Sprite{Name: name, Image: nrgba, HasAlpha: keepAlpha}
}

// toNRGBA converts any decoded image into NRGBA, stripping alpha when the
// source format is treated as opaque.
func toNRGBA(img image.Image, keepAlpha bool) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	if !keepAlpha {
		for i := 3; i < len(dst.Pix); i += 4 {
			dst.Pix[i] = 0xff
		}
	}
	return dst
}

// InvalidateSpriteCaches drops every cached sprite instance. Used when a new
// scene wants freshly constructed sprites.
func (c *Container) InvalidateSpriteCaches() {
	c.caches = map[ContentType]map[string]*Sprite{}
}
