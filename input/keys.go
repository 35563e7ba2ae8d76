// Package input watches global key presses so the advisor can react to its
// hotkey and to game keys like the scoreboard toggle.
package input

import "strings"

// NormalizeKey canonicalizes a key token for comparison: lowercase, trimmed.
// Config values and hook output both pass through here.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// vkToken maps a Windows virtual-key code to a normalized token. Unmapped
// codes return "".
func vkToken(vk uint32) string {
	switch {
	case vk >= 0x70 && vk <= 0x7B: // VK_F1..VK_F12
		return "f" + itoa(int(vk-0x70)+1)
	case vk == 0x09:
		return "tab"
	case vk >= 'A' && vk <= 'Z':
		return string(rune(vk - 'A' + 'a'))
	case vk >= '0' && vk <= '9':
		return string(rune(vk))
	default:
		return ""
	}
}

func itoa(n int) string {
	if n >= 10 {
		return string(rune('0'+n/10)) + string(rune('0'+n%10))
	}
	return string(rune('0' + n))
}
