package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docchat/docchat-go/internal/logging"
)

// NewCollectionsCmd constructs the `docchat collections` command, which
// lists ingested collections from the manifest and can drop one from both
// the vector store and the manifest.
func NewCollectionsCmd() *cobra.Command {
	var drop string

	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List ingested document collections",
		Long: `List the document collections recorded by previous ingest runs,
with their sources and chunk counts.

With --drop, removes the named collection from the vector store and
forgets its manifest records.

Examples:
  docchat collections
  docchat collections --drop employee_handbook`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			manifest, closeManifest := openManifest(log)
			defer closeManifest()
			if manifest == nil {
				return fmt.Errorf("collections: manifest database unavailable")
			}

			if drop != "" {
				index, err := buildIndex()
				if err != nil {
					return fmt.Errorf("collections: %w", err)
				}
				defer index.Close()

				exists, err := index.CollectionExists(ctx, drop)
				if err != nil {
					return fmt.Errorf("collections: %w", err)
				}
				if exists {
					if err := index.DropCollection(ctx, drop); err != nil {
						return fmt.Errorf("collections: drop %q: %w", drop, err)
					}
				}
				if err := manifest.Forget(ctx, drop); err != nil {
					return fmt.Errorf("collections: %w", err)
				}
				fmt.Printf("dropped %q\n", drop)
				return nil
			}

			names, err := manifest.Collections(ctx)
			if err != nil {
				return fmt.Errorf("collections: %w", err)
			}
			if len(names) == 0 {
				fmt.Println("no collections ingested yet — run 'docchat ingest' first")
				return nil
			}

			for _, name := range names {
				fmt.Println(name)
				runs, err := manifest.Sources(ctx, name)
				if err != nil {
					return fmt.Errorf("collections: %w", err)
				}
				for _, run := range runs {
					fmt.Printf("  %s  (%d chunks, %s)\n",
						run.Source, run.Chunks, run.IngestedAt.Format("2006-01-02 15:04"))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&drop, "drop", "", "Drop the named collection and forget its records")

	return cmd
}
