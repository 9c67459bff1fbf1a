package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brogergvhs/mxscraper/internal/chapters"
	"github.com/brogergvhs/mxscraper/internal/util"
)

// ChapterResult describes one packed chapter.
type ChapterResult struct {
	CBZ   string
	Pages int
	Bytes int64
}

// DownloadChapter downloads ch into a temporary folder under outDir, packs it
// into a CBZ next to it and removes the folder unless keepFolder is set. The
// folder is removed on failure too.
func (d *Downloader) DownloadChapter(
	ctx context.Context,
	ch chapters.Chapter,
	outDir string,
	workers int,
	keepFolder bool,
	ph Progress,
) (ChapterResult, error) {
	if len(ch.Pages) == 0 {
		return ChapterResult{}, fmt.Errorf("chapter %s has no pages", ch.Label())
	}

	tmp := filepath.Join(outDir, ch.FolderName())
	cbz := ch.OutputCBZPath(outDir)

	files, bytes, err := d.DownloadPages(ctx, ch.Pages, tmp, ch.URL, workers, ph)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return ChapterResult{}, fmt.Errorf("chapter %s: %w", ch.Label(), err)
	}

	if err := util.CreateCBZ(files, cbz); err != nil {
		_ = os.RemoveAll(tmp)
		return ChapterResult{}, fmt.Errorf("chapter %s: %w", ch.Label(), err)
	}

	if !keepFolder {
		util.CleanupFolder(tmp)
	}

	return ChapterResult{CBZ: cbz, Pages: len(files), Bytes: bytes}, nil
}
