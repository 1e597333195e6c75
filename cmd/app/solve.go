package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"lps/internal/config"
	"lps/internal/position"
)

type frameFlags struct {
	d12, d13, d23 float64
	offset        string
}

func (f *frameFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.d12, "d12", 1, "distance between anchors 1 and 2")
	cmd.Flags().Float64Var(&f.d13, "d13", 1, "distance between anchors 1 and 3")
	cmd.Flags().Float64Var(&f.d23, "d23", 1, "distance between anchors 2 and 3")
	cmd.Flags().StringVar(&f.offset, "offset", "", "frame translation as x,y,z")
}

func (f *frameFlags) frame() (*position.Frame, error) {
	frame, err := position.NewValidatedFrame(f.d12, f.d13, f.d23)
	if err != nil {
		return nil, err
	}
	if f.offset != "" {
		offset, err := config.ParseVec(f.offset)
		if err != nil {
			return nil, fmt.Errorf("--offset: %w", err)
		}
		frame.SetOffset(offset)
	}
	return frame, nil
}

func newSolveCmd() *cobra.Command {
	var (
		ff        frameFlags
		ranges    [3]float64
		both, lsq bool
	)
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Resolve one probe position from three ranges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := ff.frame()
			if err != nil {
				return err
			}
			frame.SetProbeDistances(ranges[0], ranges[1], ranges[2])

			out := cmd.OutOrStdout()
			switch {
			case both:
				upper, lower, err := frame.ProbePositions()
				if errors.Is(err, position.ErrNoSolution) {
					fmt.Fprintln(out, "Position not found!")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Probe position: %s\n", formatVec(upper))
				fmt.Fprintf(out, "Mirror position: %s\n", formatVec(lower))
			default:
				solve := frame.ProbePosition
				if lsq {
					solve = frame.EstimateProbePosition
				}
				p, err := solve()
				if errors.Is(err, position.ErrNoSolution) {
					fmt.Fprintln(out, "Position not found!")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Probe position: %s\n", formatVec(p))
			}
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().Float64Var(&ranges[0], "r1", 1, "probe distance to anchor 1")
	cmd.Flags().Float64Var(&ranges[1], "r2", 1, "probe distance to anchor 2")
	cmd.Flags().Float64Var(&ranges[2], "r3", 1, "probe distance to anchor 3")
	cmd.Flags().BoolVar(&both, "both", false, "print both mirror solutions")
	cmd.Flags().BoolVar(&lsq, "lsq", false, "use the least-squares fit")
	return cmd
}

func newAnchorsCmd() *cobra.Command {
	var ff frameFlags
	cmd := &cobra.Command{
		Use:   "anchors",
		Short: "Print the anchor positions derived from their pairwise distances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := ff.frame()
			if err != nil {
				return err
			}
			anchors, err := frame.Anchors()
			if err != nil {
				return err
			}
			for i, a := range anchors {
				fmt.Fprintf(cmd.OutOrStdout(), "Anchor %d: %s\n", i+1, formatVec(a))
			}
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}

func formatVec(v r3.Vec) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v.X, v.Y, v.Z)
}
