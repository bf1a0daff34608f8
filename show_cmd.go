package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leyningapp/leyn/leyning"
	"github.com/leyningapp/leyn/leyning/reading"
	"github.com/leyningapp/leyn/leyning/verses"
)

var (
	showStyle  string
	showWidth  uint
	showTikkun bool

	showCmd = &cobra.Command{
		Use:   "show [READING [ALIYAH]]",
		Short: "Print the text of an aliyah",
		Long: paragraph(fmt.Sprintf("\n%s the verses of an aliyah with their translation, without audio.",
			keyword("Print"))),
		Example: paragraph("leyn show Bereshit 2\nleyn show --tikkun Noach maftir"),
		Args:    cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			e, err := openEngine(cfg, false)
			if err != nil {
				return err
			}
			defer e.Close() //nolint:errcheck

			sel, err := selectionFromArgs(e, args, now())
			if err != nil {
				return err
			}
			sel.Translation = cfg.Translation

			s, err := e.assembler.Select(context.Background(), sel)
			if err != nil {
				return err
			}

			policy := verses.StripPlain
			if showTikkun {
				policy = verses.StripTikkun
			}
			return renderMarkdown(cmd, versesMarkdown(s, policy))
		},
	}
)

func aliyahTitle(sel leyning.AliyahSelector) string {
	switch sel {
	case leyning.Maftir:
		return "Maftir"
	case leyning.Haftarah:
		return "Haftarah"
	default:
		return "Aliyah " + string(sel)
	}
}

// versesMarkdown formats a session's verses as a markdown document.
func versesMarkdown(s *reading.Session, policy verses.StripPolicy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s · %s\n\n", s.Spec.Name, aliyahTitle(s.Aliyah))
	if s.Spec.Summary != "" {
		fmt.Fprintf(&b, "_%s_\n\n", s.Spec.Summary)
	}

	var book leyning.BookID
	for _, v := range s.Verses {
		if v.Book != book {
			book = v.Book
			fmt.Fprintf(&b, "## %s\n\n", book)
		}
		fmt.Fprintf(&b, "**%s** %s\n\n", verses.Key(v.ChapterVerse), strings.Join(verses.StripAll(v.Words, policy), " "))
		if v.Translation != nil {
			fmt.Fprintf(&b, "> %s\n\n", *v.Translation)
		}
	}
	return b.String()
}

func glamourStyle(style string) (glamour.TermRendererOption, error) {
	if style == styles.AutoStyle {
		return glamour.WithAutoStyle(), nil
	}
	if styles.DefaultStyles[style] != nil {
		return glamour.WithStandardStyle(style), nil
	}
	path, err := homedir.Expand(style)
	if err != nil {
		return nil, fmt.Errorf("unable to expand style path: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("specified style does not exist: %s", style)
	}
	return glamour.WithStylePath(path), nil
}

func renderMarkdown(cmd *cobra.Command, md string) error {
	style := showStyle
	width := showWidth

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	// We want to use a special no-TTY style, when stdout is not a terminal
	// and there was no specific style passed by arg
	if !isTerminal && !cmd.Flags().Changed("style") {
		style = "notty"
	}

	// Detect terminal width
	if !cmd.Flags().Changed("width") {
		if isTerminal {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(min(w, 120)) //nolint:gosec
			}
		}
		if width == 0 {
			width = 80
		}
	}

	opt, err := glamourStyle(style)
	if err != nil {
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		opt,
		glamour.WithWordWrap(int(width)), //nolint:gosec
	)
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}

	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("unable to render markdown: %w", err)
	}
	if _, err := fmt.Fprint(cmd.OutOrStdout(), out); err != nil {
		return fmt.Errorf("unable to write to writer: %w", err)
	}
	return nil
}

func init() {
	showCmd.Flags().StringVarP(&showStyle, "style", "s", styles.AutoStyle, "style name or JSON path")
	showCmd.Flags().UintVarP(&showWidth, "width", "w", 0, "word-wrap at width")
	showCmd.Flags().BoolVarP(&showTikkun, "tikkun", "t", false, "print the unpointed scroll text")
}
