package console

import (
	"fmt"
	"stepgen/internal/synth"
	"stepgen/pkg/apperr"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func (i *Interface) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "stepgen",
		Short:         "Generate godog step definitions for Gherkin features by crawling the application under test",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(i.newGenerateCmd())
	root.AddCommand(i.newAlignCmd())
	root.AddCommand(i.newParseCmd())
	root.AddCommand(i.newCheckCmd())

	return root
}

func (i *Interface) newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [feature-file...]",
		Short: "Crawl the application and write a step definition file per feature",
		Long: `Crawl the login, authenticated, forgot-password and success screens of the
application at BASE_URL, then write <output-dir>/<name>/<name>_steps.go for each
feature file. With no arguments every .feature file under the features
directory is processed. An unreachable application still produces step files
that rely on generic selectors.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if i.config.TargetConfig.BaseURL == "" {
				i.logger.Warn("BASE_URL is not set, the crawl will not reach the application")
			}

			results, err := i.usecase.Generator.GenerateAll(cmd.Context(), args)

			out := cmd.OutOrStdout()
			failed := 0

			for _, r := range results {
				if r.Err != nil {
					failed++
					failLine(out, "%s: %v", r.FeaturePath, r.Err)
					continue
				}

				screens := make([]string, 0, len(r.Screens))
				for _, s := range r.Screens {
					screens = append(screens, string(s))
				}
				if len(screens) == 0 {
					screens = append(screens, "none")
				}

				okLine(out, "%s -> %s %s", r.FeaturePath, r.OutputPath,
					faint(fmt.Sprintf("(%d/%d steps matched, screens: %s, %s)", r.Matched, r.Steps, strings.Join(screens, ", "), r.Duration.Round(time.Millisecond))))
			}

			if err != nil {
				if failed > 0 {
					return fmt.Errorf("%d of %d features failed", failed, len(results))
				}

				return err
			}

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&i.config.OutputConfig.FeaturesDir, "features-dir", i.config.OutputConfig.FeaturesDir, "directory scanned when no feature file is given")
	flags.StringVarP(&i.config.OutputConfig.OutputDir, "output-dir", "o", i.config.OutputConfig.OutputDir, "root directory of the generated step files")
	flags.BoolVar(&i.config.OutputConfig.DumpCaptures, "dump-captures", i.config.OutputConfig.DumpCaptures, "also write the captured selectors as captures.yaml")
	flags.BoolVar(&i.config.BrowserConfig.Headless, "headless", i.config.BrowserConfig.Headless, "run Chromium without a window")

	return cmd
}

func (i *Interface) newAlignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "align <feature-file> [generated-file]",
		Short: "Rewrite step registrations whose text no longer matches the feature file",
		Long: `Rewrite the registrations of a generated step file so that every feature step
has a registration with the same keyword and text. Bodies are left untouched.
The generated file defaults to the one generate writes for the feature.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			featurePath := args[0]

			generatedPath := ""
			if len(args) == 2 {
				generatedPath = args[1]
			}

			fixes, err := i.usecase.Aligner.Align(cmd.Context(), generatedPath, featurePath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if len(fixes) == 0 {
				okLine(out, "%s already aligned", featurePath)
				return nil
			}

			for _, fix := range fixes {
				fixLine(out, fix.Line, fix.Previous, fmt.Sprintf("%s(%q", fix.Keyword, fix.Text))
			}
			okLine(out, "%d registrations aligned with %s", len(fixes), featurePath)

			return nil
		},
	}
}

func (i *Interface) newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "parse <feature-file>",
		Aliases: []string{"preview"},
		Short:   "List the scenarios of a feature file and the template each step selects",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, impls, err := i.usecase.Generator.Preview(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			heading(out, "Feature: "+parsed.Name)

			total, matched := 0, 0

			for si, sc := range parsed.Scenarios {
				fmt.Fprintf(out, "\n  Scenario: %s\n", sc.Name)

				for j, st := range sc.Steps {
					total++

					label := impls[si][j].MatchedPattern
					if label == synth.DefaultIntent {
						label = warnStyle.Render("placeholder")
					} else {
						matched++
					}

					fmt.Fprintf(out, "    %-5s %s %s\n", st.Keyword, st.Text, faint("-> "+label))
				}
			}

			fmt.Fprintf(out, "\n%d steps, %d matched\n", total, matched)

			return nil
		},
	}
}

func (i *Interface) newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Launch Chromium once to verify the browser runtime before generating",
		Long: `Launch the Playwright driver and Chromium with the configured options and
report whether the browser is ready. generate never fails on a missing browser,
it falls back to generic selectors; check makes that failure visible.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			if err := i.usecase.Browser.Launch(cmd.Context()); err != nil {
				failLine(out, "browser not ready")
				return err
			}

			if !i.usecase.Browser.IsReady() {
				failLine(out, "browser not ready")
				return apperr.WrapErrorWithReason("Check", apperr.CodeBrowserNotReady, "not_ready_after_launch")
			}

			okLine(out, "browser ready %s", faint(fmt.Sprintf("(headless: %t)", i.config.BrowserConfig.Headless)))

			if i.config.TargetConfig.BaseURL == "" {
				failLine(out, "BASE_URL is not set, generate will not reach the application")
			}

			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&i.config.BrowserConfig.Headless, "headless", i.config.BrowserConfig.Headless, "run Chromium without a window")
	flags.BoolVar(&i.config.BrowserConfig.Install, "install", i.config.BrowserConfig.Install, "install the Playwright driver and Chromium before launching")

	return cmd
}
