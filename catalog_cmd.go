package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/ughealth/healthguide/internal/catalog"
)

var (
	catalogFilter string

	languagesCmd = &cobra.Command{
		Use:     "languages",
		Aliases: []string{"langs"},
		Short:   "List the supported languages",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listLanguages(cmd.OutOrStdout(), catalogFilter)
		},
	}

	topicsCmd = &cobra.Command{
		Use:   "topics",
		Short: "List the health topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listTopics(cmd.OutOrStdout(), catalogFilter)
		},
	}
)

var (
	tableHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	tableBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5C5C5C"))
)

func init() {
	languagesCmd.Flags().StringVarP(&catalogFilter, "filter", "f", "", "fuzzy filter")
	topicsCmd.Flags().StringVarP(&catalogFilter, "filter", "f", "", "fuzzy filter")
}

func listLanguages(w io.Writer, filter string) error {
	langs := catalog.SearchLanguages(filter)
	if len(langs) == 0 {
		_, err := fmt.Fprintf(w, "No languages match %q\n", filter)
		return err
	}
	rows := make([][]string, 0, len(langs))
	for _, l := range langs {
		rows = append(rows, []string{l.Code, l.Name, l.NativeName})
	}
	return writeTable(w, []string{"Code", "Language", "Native name"}, rows)
}

func listTopics(w io.Writer, filter string) error {
	topics := catalog.SearchTopics(filter)
	if len(topics) == 0 {
		_, err := fmt.Fprintf(w, "No topics match %q\n", filter)
		return err
	}
	rows := make([][]string, 0, len(topics))
	for _, t := range topics {
		rows = append(rows, []string{t.Key, t.Title})
	}
	return writeTable(w, []string{"Key", "Topic"}, rows)
}

func writeTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return fmt.Errorf("unable to write to writer: %w", err)
	}
	return nil
}
