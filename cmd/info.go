package cmd

import (
	"fmt"

	"github.com/alde/mangaview/pkg/document"
	"github.com/alde/mangaview/pkg/tile"
	"github.com/alde/mangaview/pkg/viewport"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var probePages bool

var infoCmd = &cobra.Command{
	Use:   "info [input]",
	Short: "Show page and layout information for a document",
	Long: `Show page count, page dimensions and layout geometry for a manga
document without rendering it.

By default only dimensions the source reports up front are shown; pages
inside image archives stay unmeasured until their first decode. Use
--probe to fetch every page and report exact sizes.

Examples:
  mangaview info series-vol1.cbz
  mangaview info chapter.pdf
  mangaview info scans/ --probe`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().BoolVar(&probePages, "probe", false, "Fetch every page to measure exact dimensions")
}

func runInfo(cmd *cobra.Command, args []string) error {
	doc, err := openDocument(args[0])
	if err != nil {
		return err
	}
	defer doc.Close()

	count := doc.PageCount()
	if count == 0 {
		return fmt.Errorf("document has no pages")
	}

	if probePages {
		for page := 1; page <= count; page++ {
			doc.NativeDimensions(page)
		}
	}

	measured := doc.ResolvedPages()
	minW, minH, maxW, maxH := pageSizeRange(doc)

	fmt.Printf("Document:  %s\n", doc.ID())
	fmt.Printf("Pages:     %d\n", count)
	fmt.Printf("Measured:  %d/%d pages\n", measured, count)
	if minW == maxW && minH == maxH {
		fmt.Printf("Page size: %dx%d px\n", minW, minH)
	} else {
		fmt.Printf("Page size: %dx%d - %dx%d px\n", minW, minH, maxW, maxH)
	}
	if measured < count {
		fmt.Printf("           (unmeasured pages assume %dx%d)\n",
			document.PlaceholderWidth, document.PlaceholderHeight)
	}

	height := int64(doc.VirtualHeight(1.0, 0))
	rotated := int64(doc.VirtualHeight(1.0, 90))
	fmt.Printf("Scroll:    %s px tall at 100%% zoom, %d px page gap\n",
		humanize.Comma(height), doc.Gap())
	fmt.Printf("           %s px tall rotated a quarter turn\n",
		humanize.Comma(rotated))

	tiles := tile.NewCache(tile.Config{})
	fmt.Printf("Cache:     %s tile budget, %d px tiles\n",
		humanize.IBytes(uint64(tiles.Budget())), tiles.TileSize())

	view := viewport.NewController(doc, nil)
	spreads := view.Spreads()
	solo := 0
	for _, s := range spreads {
		if s.Solo() {
			solo++
		}
	}
	fmt.Printf("Spreads:   %d in dual page mode (%d solo)\n", len(spreads), solo)

	return nil
}

// pageSizeRange scans the known dimensions of every page, placeholder
// included for unmeasured ones.
func pageSizeRange(doc *document.Document) (minW, minH, maxW, maxH int) {
	for page := 1; page <= doc.PageCount(); page++ {
		w, h := doc.CurrentDimensions(page)
		if page == 1 || w < minW {
			minW = w
		}
		if page == 1 || h < minH {
			minH = h
		}
		if w > maxW {
			maxW = w
		}
		if h > maxH {
			maxH = h
		}
	}
	return minW, minH, maxW, maxH
}
