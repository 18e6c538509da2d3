package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"resumind/internal/artifact"
	"resumind/internal/bootstrap"
	"resumind/internal/pipeline"
	"resumind/internal/rasterize"
	"resumind/internal/shared/auth"
	"resumind/internal/shared/config"
	"resumind/internal/shared/telemetry"
)

// appBuilder builds the dependency graph for commands that need storage.
type appBuilder func(ctx context.Context) (*bootstrap.App, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer telemetry.Sync()

	rootCmd := newRootCommand(defaultBuilder)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "resumind: %v\n", err)
		os.Exit(1)
	}
}

func defaultBuilder(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := telemetry.Init(cfg.Env, cfg.LogLevel); err != nil {
		return nil, err
	}
	return bootstrap.Build(ctx, cfg)
}

func newRootCommand(build appBuilder) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "resumind",
		Short:        "Resume analysis from the command line",
		Long:         `resumind uploads a resume, renders its first page, asks the model for feedback and stores the result using the same configuration as the API server.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newSubmitCmd(build),
		newGetCmd(build),
		newListCmd(build),
		newConvertCmd(),
	)
	return cmd
}

func newSubmitCmd(build appBuilder) *cobra.Command {
	var (
		company, jobTitle, jobDescription, user string
		quiet                                   bool
	)
	cmd := &cobra.Command{
		Use:   "submit <resume.pdf>",
		Short: "Run the full analysis pipeline on a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			file, err := readArtifact(args[0])
			if err != nil {
				return err
			}
			app, err := build(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if user != "" {
				ctx = auth.WithIdentity(ctx, auth.Identity{UserID: user})
			}
			observer := func(st pipeline.Status) {
				if !quiet {
					fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", st.State, st.Message)
				}
			}
			rec, err := app.Pipeline.Submit(ctx, pipeline.Input{
				File:           file,
				CompanyName:    company,
				JobTitle:       jobTitle,
				JobDescription: jobDescription,
			}, observer)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "Company name")
	cmd.Flags().StringVar(&jobTitle, "job-title", "", "Job title")
	cmd.Flags().StringVar(&jobDescription, "job-description", "", "Job description")
	cmd.Flags().StringVar(&user, "user", "", "Owner id to record on the analysis")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print progress")
	return cmd
}

func newGetCmd(build appBuilder) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			rec, err := app.Resumes.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func newListCmd(build appBuilder) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored analyses, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			if user != "" {
				recs, err := app.Resumes.ListForUser(cmd.Context(), user)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), recs)
			}
			recs, err := app.Resumes.List(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), recs)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Only show analyses owned by this id")
	return cmd
}

func newConvertCmd() *cobra.Command {
	var (
		out   string
		scale float64
	)
	cmd := &cobra.Command{
		Use:   "convert <resume.pdf>",
		Short: "Render the first page of a PDF to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := readArtifact(args[0])
			if err != nil {
				return err
			}
			conv, err := rasterize.New(scale)
			if err != nil {
				return err
			}
			res := conv.Convert(cmd.Context(), file)
			if !res.OK() {
				return fmt.Errorf("%s", res.Err)
			}
			if out == "" {
				out = filepath.Join(filepath.Dir(args[0]), res.Image.Name)
			}
			if err := os.WriteFile(out, res.Image.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (defaults to <name>.png next to the input)")
	cmd.Flags().Float64Var(&scale, "scale", rasterize.DefaultScale, "Render scale relative to PDF points")
	return cmd
}

func readArtifact(path string) (artifact.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return artifact.File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return artifact.File{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
