// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestNewTheme_Modes(t *testing.T) {
	dark := NewTheme("dark")
	if !dark.IsDark {
		t.Error("dark mode should set IsDark")
	}

	light := NewTheme("light")
	if light.IsDark {
		t.Error("light mode should clear IsDark")
	}

	// Auto must not panic without a terminal attached.
	_ = NewTheme("auto")
}

func TestTheme_StylesInitialized(t *testing.T) {
	theme := NewTheme("dark")

	// A zero style renders its input unchanged; a configured left border
	// style changes the output width.
	out := theme.UserMessage.Render("hi")
	if out == "" {
		t.Fatal("UserMessage style produced no output")
	}
	if theme.InputPrompt.Render("> ") == "" {
		t.Fatal("InputPrompt style produced no output")
	}
}
