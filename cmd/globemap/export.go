package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"globemap/internal/asset"
	"globemap/internal/geodata"
	"globemap/internal/geom"
	"globemap/internal/logging"
	"globemap/internal/mesh"
)

func newExportMeshCommand(root *rootOptions) *cobra.Command {
	gopts := mesh.DefaultGlobeOptions()
	var level, reportPath string
	cmd := &cobra.Command{
		Use:   "export-mesh OUTPUT",
		Short: "Triangulate the boundaries onto the globe and write mesh JSON",
		Long: "export-mesh builds the country meshes the globe view uses and writes them as\n" +
			"{ISO: {name, verts, faces}} JSON, loadable later through globe.asset_path.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := geodata.ParseLevel(level)
			if err != nil {
				return err
			}
			return exportMesh(cmd.Context(), root, args[0], reportPath, lvl, gopts)
		},
	}
	cmd.Flags().StringVar(&level, "level", "low", "boundary detail level (low, high)")
	cmd.Flags().Float64Var(&gopts.MaxEdge, "max-edge", gopts.MaxEdge, "longest triangle edge in degrees before subdividing")
	cmd.Flags().Float64Var(&gopts.Radius, "radius", gopts.Radius, "sphere radius of the country meshes")
	cmd.Flags().Float64Var(&gopts.SimplifyTolerance, "simplify-tolerance", gopts.SimplifyTolerance, "ring simplification tolerance in degrees (0 disables)")
	cmd.Flags().StringSliceVar(&gopts.Codes, "iso", nil, "only export these ISO codes (repeatable or comma separated)")
	cmd.Flags().StringVar(&reportPath, "topology-report", "", "write per-country hole and area diagnostics as JSON to this path")
	return cmd
}

func exportMesh(ctx context.Context, root *rootOptions, out, reportPath string, level geodata.Level, gopts mesh.GlobeOptions) error {
	cfg, closeLog, err := setup(root, false)
	if err != nil {
		return err
	}
	defer closeLog()

	var reports []mesh.TopologyReport
	if reportPath != "" {
		gopts.OnReport = func(r mesh.TopologyReport) { reports = append(reports, r) }
	}

	builder := asset.GlobeBuilder{
		Features: func(ctx context.Context) (*geom.FeatureCollection, error) {
			return newStore(cfg).Load(ctx, level)
		},
		Options: gopts,
	}
	scene, err := builder.Load(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	w := bufio.NewWriter(f)
	if err := asset.WriteMeshData(w, scene, mesh.DefaultNameTable()); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logging.Info().Str("path", out).Int("nodes", len(scene.Nodes)).Msg("mesh exported")

	if reportPath != "" {
		if err := writeReports(reportPath, reports); err != nil {
			return err
		}
		logging.Info().Str("path", reportPath).Int("countries", len(reports)).Msg("topology report written")
	}
	return nil
}

func writeReports(path string, reports []mesh.TopologyReport) error {
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode topology report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
