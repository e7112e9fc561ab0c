/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package domain holds the metadata structures embedded in a compiled story
// container. The JSON keys match the compiler's output exactly; both headers
// are read-only after load.
package domain

import (
	"encoding/json"
	"fmt"
)

// GeneralHeader is the story-level metadata block.
type GeneralHeader struct {
	StoryInfo             StoryInfo           `json:"StoryInfo"`
	WindowSize            []int               `json:"StoryWindowSize"`
	EngineVersion         string              `json:"StoryEngineVersion"`
	CompileMode           string              `json:"StoryCompileMode"`
	ChapterAndSceneNames  map[string][]string `json:"StoryChapterAndSceneNames"`
	PosterTitleImageEntry *AssetEntry         `json:"PosterTitleImageLocation"`
}

// StoryInfo holds the author-facing details shown on the launch screen.
type StoryInfo struct {
	Title       string `json:"Title"`
	Author      string `json:"Author"`
	Copyright   string `json:"Copyright"`
	Description string `json:"Description"`
	Genre       string `json:"Genre"`
	Version     string `json:"Version"`
	Episode     string `json:"Episode"`
	License     string `json:"License"`
}

// DetailHeader maps asset categories to named byte ranges, and carries the
// compiled scripts and startup variables.
type DetailHeader struct {
	Characters    map[string]AssetEntry `json:"StoryCharacter_ImageLocations"`
	Objects       map[string]AssetEntry `json:"StoryObject_ImageLocations"`
	Backgrounds   map[string]AssetEntry `json:"StoryBackground_ImageLocations"`
	FontSheets    map[string]AssetEntry `json:"StoryFontSprite_ImageLocations"`
	DialogSprites map[string]AssetEntry `json:"StoryDialog_ImageLocations"`
	Audio         map[string]AssetEntry `json:"StoryAudio_Locations"`
	Music         map[string]AssetEntry `json:"StoryMusic_Locations"`

	FontProperties map[string]FontSheetProperties `json:"FontSpriteProperties"`

	// StartScript maps the startup chapter name to the startup scene name.
	StartScript map[string]string `json:"StoryStartScript"`
	// Reusables maps reusable script names to their script text.
	Reusables map[string]string `json:"StoryReusables"`
	// Scripts maps chapter names to the chapter script plus its scenes.
	Scripts map[string]ChapterScript `json:"StoryScript"`
	// Variables holds the initial variable table.
	Variables map[string]string `json:"StoryVariables"`
}

// AssetEntry is the per-asset value shape: ["<from>-<to>", "<extension>"].
type AssetEntry struct {
	Range     string
	Extension string
}

func (e *AssetEntry) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("asset entry: want 2 elements, got %d", len(pair))
	}
	e.Range, e.Extension = pair[0], pair[1]
	return nil
}

func (e AssetEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{e.Range, e.Extension})
}

// ChapterScript is the compiled shape of one chapter:
// [chapter script, {scene name: scene script}].
type ChapterScript struct {
	Script string
	Scenes map[string]string
}

func (c *ChapterScript) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("chapter script: want 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &c.Script); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &c.Scenes)
}

func (c ChapterScript) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Script, c.Scenes})
}

// FontSheetProperties describes how to slice a font sprite sheet into letters.
type FontSheetProperties struct {
	Width             int                         `json:"Width"`
	Height            int                         `json:"Height"`
	PaddingLetters    int                         `json:"PaddingLetters"`
	PaddingLines      int                         `json:"PaddingLines"`
	DetectLetterEdges bool                        `json:"DetectLetterEdges"`
	Letters           map[string]LetterProperties `json:"Letters"`
}

// LetterProperties holds one letter's crop rectangle (left, upper, right,
// lower) and its kerning rules ([previous letters, left trim, right trim]).
type LetterProperties struct {
	RectCrop     []int           `json:"rect_crop"`
	KerningRules [][]json.Number `json:"kerning_rules"`
}

// Title returns the story title, falling back to a placeholder when the
// compiler left it blank.
func (h GeneralHeader) Title() string {
	if h.StoryInfo.Title == "" {
		return "Untitled Story"
	}
	return h.StoryInfo.Title
}

// Window returns the requested window size, defaulting to 640x480 when the
// header carries no usable size.
func (h GeneralHeader) Window() (w, h2 int) {
	if len(h.WindowSize) == 2 && h.WindowSize[0] > 0 && h.WindowSize[1] > 0 {
		return h.WindowSize[0], h.WindowSize[1]
	}
	return 640, 480
}
