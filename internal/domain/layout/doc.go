// Package layout tracks the pane proportions of a practice workspace.
//
// The workspace is a horizontal split of three panes (description, editor,
// assistant) with a nested vertical split inside the editor for the terminal.
// Sizes are percentages that always sum to 100 and never drop below the
// minimum pane width, a pixel floor translated to a percentage of the
// container.
//
// Hiding the assistant renormalizes the remaining two panes and remembers the
// three-pane split; showing it again restores that split exactly. Resizes made
// while the assistant is hidden are not merged back into the remembered split.
package layout
