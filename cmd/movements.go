package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Movements prints the movement catalog.
func (r *Runner) Movements(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.catalog()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(catalog, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Movements")
	for _, m := range catalog {
		r.writePlain("%-10s %s\n", m.ID, m.Name)
		if m.Description != "" {
			r.writePlain("           %s\n", m.Description)
		}
		if m.ImageURL != "" {
			r.writePlain("           %s\n", m.ImageURL)
		}
	}
	return r.writePlainln("Total: %d movements", len(catalog))
}
