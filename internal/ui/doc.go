// Package ui styles command-line output with a small [lipgloss] palette.
//
// Long-running commands stream [tasks.ProgressUpdate] values through [Follow],
// which renders one line per event, and finish with a summary such as [RenderSweep].
package ui
