package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stockpulse/internal/schema"
	"stockpulse/pkg/contracts/domain"
)

func newSchemaCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and check workbook schemas",
	}

	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective schema as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas, err := loadSchemas(v.GetString("schema"), 0)
			if err != nil {
				return err
			}

			cfg := schemas.Config()
			if raw := v.GetString("category"); raw != "" {
				category, err := domain.ParseCategory(raw)
				if err != nil {
					return fmt.Errorf("--category: %w", err)
				}
				if cfg, err = schemas.For(category); err != nil {
					return err
				}
			}
			return schema.Dump(cmd.OutOrStdout(), cfg)
		},
	}
	dump.Flags().StringP("category", "c", "", "only the sheets of this category")

	check := &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a schema YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas, err := schema.LoadFile(args[0])
			if err != nil {
				return err
			}

			counts := map[domain.Category]int{}
			for _, s := range schemas.Config().Sheets {
				counts[s.Category]++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d inventory sheets, %d osr sheets)\n",
				args[0], counts[domain.CategoryInventory], counts[domain.CategoryOSR])
			return nil
		},
	}

	cmd.AddCommand(dump, check)
	return cmd
}
