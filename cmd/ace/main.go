package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/ace/internal/ace"
	"github.com/san-kum/ace/internal/config"
	"github.com/san-kum/ace/internal/radial"
	"github.com/san-kum/ace/internal/rpibasis"
	"github.com/san-kum/ace/internal/tui"
)

var (
	configFile string
	preset     string
	workers    int
	withGrad   bool
	format     string
	channel    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ace",
		Short: "atomic cluster expansion basis toolkit",
		RunE: func(cmd *cobra.Command, args []string) error {
			// default to the interactive browser when no command given
			return tui.RunBrowser()
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "basis config file (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "show basis sizes",
		RunE:  showInfo,
	}

	evalCmd := &cobra.Command{
		Use:   "eval [environments.json]",
		Short: "evaluate the basis on environments",
		Args:  cobra.ExactArgs(1),
		RunE:  evalEnvironments,
	}
	evalCmd.Flags().BoolVar(&withGrad, "grad", false, "include neighbor gradients")
	evalCmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (0 = all cpus)")
	evalCmd.Flags().StringVar(&format, "format", "json", "output format (json|csv)")

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "plot radial channels",
		RunE:  plotRadial,
	}
	plotCmd.Flags().IntVar(&channel, "channel", -1, "single channel to plot (-1 = all)")

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "interactive basis browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunBrowser()
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark basis evaluation",
		RunE:  benchEval,
	}
	benchCmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (0 = all cpus)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tORDER\tDEGREE\tNMAX\tLMAX\tRCUT")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%g\t%d\t%d\t%.1f\n",
					name, p.MaxOrder, p.MaxDegree[0], p.Radial.NMax, p.Radial.LMax, p.Radial.RCut)
			}
			return w.Flush()
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a default config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}

	rootCmd.AddCommand(infoCmd, evalCmd, plotCmd, browseCmd, benchCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig picks the basis configuration: preset first, then config
// file overrides, then the built-in default.
func resolveConfig() (*config.Config, error) {
	if preset != "" {
		cfg := config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		return cfg, nil
	}
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.DefaultConfig(), nil
}

func showInfo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	start := time.Now()
	b, err := rpibasis.New(cfg)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("species: %v\n", cfg.Species)
	fmt.Printf("one-particle functions: %d\n", b.NumOneParticle())
	fmt.Printf("product nodes: %d\n", b.NumNodes())
	fmt.Printf("basis functions: %d\n", b.Len())
	fmt.Printf("constructed in %v\n\n", elapsed)

	perOrder := make(map[int]int)
	for k := 0; k < b.Len(); k++ {
		perOrder[b.Order(k)]++
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tFUNCTIONS")
	for o := 0; o <= b.MaxOrder(); o++ {
		fmt.Fprintf(w, "%d\t%d\n", o, perOrder[o])
	}
	return w.Flush()
}

type neighborJSON struct {
	R [3]float64 `json:"r"`
	Z int        `json:"z"`
}

type envJSON struct {
	ZCenter   int            `json:"z_center"`
	Neighbors []neighborJSON `json:"neighbors"`
}

type resultJSON struct {
	Values    []float64      `json:"values"`
	Gradients [][][3]float64 `json:"gradients,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func loadEnvironments(path string) ([]ace.Environment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []envJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		// allow a single bare environment object
		var one envJSON
		if err2 := json.Unmarshal(data, &one); err2 != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		raw = []envJSON{one}
	}

	envs := make([]ace.Environment, len(raw))
	for i, e := range raw {
		envs[i] = ace.Environment{ZCenter: e.ZCenter}
		for _, nb := range e.Neighbors {
			envs[i].Neighbors = append(envs[i].Neighbors, ace.Neighbor{R: nb.R, Z: nb.Z})
		}
	}
	return envs, nil
}

func evalEnvironments(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	b, err := rpibasis.New(cfg)
	if err != nil {
		return err
	}

	envs, err := loadEnvironments(args[0])
	if err != nil {
		return err
	}

	results := b.EvaluateBatch(context.Background(), envs, workers, withGrad)

	switch format {
	case "json":
		out := make([]resultJSON, len(results))
		for i, res := range results {
			if res.Err != nil {
				out[i].Error = res.Err.Error()
				continue
			}
			out[i].Values = res.Values
			if withGrad {
				out[i].Gradients = make([][][3]float64, len(res.Gradients))
				for k, gk := range res.Gradients {
					out[i].Gradients[k] = make([][3]float64, len(gk))
					for j, g := range gk {
						out[i].Gradients[k][j] = g
					}
				}
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)

	case "csv":
		w := csv.NewWriter(os.Stdout)
		defer w.Flush()

		header := []string{"env"}
		for k := 0; k < b.Len(); k++ {
			header = append(header, fmt.Sprintf("b%d", k))
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for i, res := range results {
			if res.Err != nil {
				return fmt.Errorf("environment %d: %w", i, res.Err)
			}
			row := []string{strconv.Itoa(i)}
			for _, v := range res.Values {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func plotRadial(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	tr, _, err := cfg.BuildTransform()
	if err != nil {
		return err
	}
	rb, err := radial.New(cfg.Radial.NMax, cfg.Radial.RIn, cfg.Radial.RCut, tr)
	if err != nil {
		return err
	}

	first, last := 0, rb.NMax
	if channel >= 0 {
		if channel > rb.NMax {
			return fmt.Errorf("channel %d out of range [0, %d]", channel, rb.NMax)
		}
		first, last = channel, channel
	}

	const samples = 120
	lo := rb.RIn
	if lo == 0 {
		lo = rb.RCut / float64(samples)
	}

	for n := first; n <= last; n++ {
		data := make([]float64, samples)
		for i := range data {
			r := lo + (rb.RCut-lo)*float64(i)/float64(samples-1)
			v, err := rb.EvalScalar(n, r)
			if err != nil {
				return err
			}
			data[i] = v
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("R%d over [%.2f, %.2f]", n, lo, rb.RCut)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func benchEval(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	b, err := rpibasis.New(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("basis functions: %d\n\n", b.Len())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NEIGHBORS\tENVS\tGRAD\tTIME\tENVS/SEC")

	rng := rand.New(rand.NewSource(1))
	for _, nNb := range []int{10, 30, 60} {
		envs := make([]ace.Environment, 256)
		for i := range envs {
			envs[i] = syntheticEnv(rng, nNb, len(cfg.Species), cfg.Radial.RCut)
		}

		for _, grad := range []bool{false, true} {
			start := time.Now()
			results := b.EvaluateBatch(context.Background(), envs, workers, grad)
			elapsed := time.Since(start)

			for i, res := range results {
				if res.Err != nil {
					return fmt.Errorf("environment %d: %w", i, res.Err)
				}
			}

			fmt.Fprintf(w, "%d\t%d\t%v\t%v\t%.0f\n",
				nNb, len(envs), grad, elapsed, float64(len(envs))/elapsed.Seconds())
		}
	}
	return w.Flush()
}

func syntheticEnv(rng *rand.Rand, nNeighbors, nSpecies int, rcut float64) ace.Environment {
	env := ace.Environment{ZCenter: rng.Intn(nSpecies)}
	for i := 0; i < nNeighbors; i++ {
		var v ace.Vec3
		for {
			v = ace.Vec3{2*rng.Float64() - 1, 2*rng.Float64() - 1, 2*rng.Float64() - 1}
			if n := v.Norm(); n > 0.1 && n <= 1 {
				break
			}
		}
		env.Neighbors = append(env.Neighbors, ace.Neighbor{
			R: v.Scale(0.9 * rcut),
			Z: rng.Intn(nSpecies),
		})
	}
	return env
}
