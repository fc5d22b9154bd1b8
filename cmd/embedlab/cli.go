package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/xxxsen/embedlab/internal/model"
	"github.com/xxxsen/embedlab/internal/pkg/jwt"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	modelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func newTokenCmd(configPath *string) *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "issue an ingestion token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.Ingest.TokenTTLHours) * time.Hour
			}
			token, err := jwt.GenerateToken(subject, jwt.ScopeIngest, []byte(cfg.Ingest.UploadSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "cli", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to ingest.token_ttl_hours")
	return cmd
}

func newCompareCmd(configPath *string) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "query every model's comparison collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" && len(args) > 0 {
				query = strings.Join(args, " ")
			}
			if strings.TrimSpace(query) == "" {
				return fmt.Errorf("--query is required")
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			outcomes, err := a.compare.Compare(ctx, query)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderComparison(query, outcomes))
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "query text")
	return cmd
}

func newSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "load a document into every model's comparison collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			outcomes, err := a.compare.Seed(ctx, string(raw))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSeed(outcomes))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "plain text document to seed")
	return cmd
}

func renderComparison(query string, outcomes []model.ModelOutcome) string {
	blocks := []string{headerStyle.Render("query: " + query)}
	for _, o := range outcomes {
		lines := []string{modelStyle.Render(string(o.Model))}
		if o.Error != "" {
			lines = append(lines, errorStyle.Render(o.Error))
		}
		for i, item := range o.Items {
			dist := "-"
			if item.Distance != nil {
				dist = fmt.Sprintf("%.4f", *item.Distance)
			}
			lines = append(lines, fmt.Sprintf("%d. %s %s", i+1, dimStyle.Render(dist), oneLine(item.Text, 100)))
		}
		blocks = append(blocks, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func renderSeed(outcomes []model.SeedOutcome) string {
	lines := []string{headerStyle.Render("seeded comparison collections")}
	for _, o := range outcomes {
		if o.Error != "" {
			lines = append(lines, modelStyle.Render(string(o.Model))+" "+errorStyle.Render(o.Error))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %d chunks %s", modelStyle.Render(string(o.Model)), o.Chunks, dimStyle.Render(o.CollectionID)))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func oneLine(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
