// Package layout owns the project's stage folder structure and the move and
// copy rules that promote assets between stages. Folder moves are the
// pipeline's commit points.
package layout
