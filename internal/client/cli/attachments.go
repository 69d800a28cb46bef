package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/common"
)

func (a *App) attachFile(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: attach <task-id> <path>")
		return
	}
	taskID, path := args[0], args[1]

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	att, err := a.attachments.Add(ctx, taskID, path, mimeType)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("Attached %s as %s (%d bytes)\n", att.Filename, att.ID, att.SizeBytes)
}

func (a *App) listFiles(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: files <task-id>")
		return
	}
	list, err := a.attachments.ListByTask(ctx, args[0])
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(list) == 0 {
		fmt.Println("No attachments")
		return
	}
	for _, att := range list {
		fmt.Printf("%-10s %s  %s (%d bytes)\n", att.UploadStatus, att.ID, att.Filename, att.SizeBytes)
	}
}

func (a *App) uploadFile(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: upload <attachment-id>")
		return
	}
	id := args[0]

	err := a.uploader.Upload(ctx, id)
	if err == nil {
		a.scheduler.Clear(id)
		fmt.Println("Upload completed")
		return
	}
	fmt.Println("Upload failed:", err)

	switch {
	case errors.Is(err, common.ErrUploadInProgress),
		errors.Is(err, common.ErrSourceNotFound):
		// Nothing to schedule: either a transfer is already running or the
		// file is gone and retrying cannot help.
	default:
		a.scheduler.RegisterFailure(id)
		if job, _ := a.scheduler.Job(id); job != nil && job.NextRetryAt != nil {
			fmt.Println("Retry scheduled for", job.NextRetryAt.Format("15:04:05"))
		}
	}
}

func (a *App) retryUploadCmd(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: retryupload <attachment-id>")
		return
	}
	a.scheduler.ManualRetry(ctx, args[0])
	fmt.Println("Retry requested")
}

func (a *App) downloadFile(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: download <attachment-id>")
		return
	}
	id := args[0]

	att, err := a.attachments.Get(ctx, id)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if att.RemoteKey == "" {
		fmt.Println("Attachment has not been uploaded yet")
		return
	}

	url, err := a.apiClient.ResolveDownloadURL(ctx, att.RemoteKey)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	progress, dest, err := a.downloads.Start(url, id, att.Filename)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Download started:", dest)

	// Report completion from the background so the prompt stays usable
	// (and "cancel" keeps working) while the transfer runs.
	go func() {
		var last models.Progress
		for p := range progress {
			last = p
		}
		if _, err := a.downloads.Await(context.Background(), id); err != nil {
			fmt.Printf("\nDownload of %s failed: %v\n", att.Filename, err)
			return
		}
		fmt.Printf("\nDownloaded %s (%d bytes) to %s\n", att.Filename, last.BytesDownloaded, dest)
	}()
}

func (a *App) cancelDownload(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: cancel <attachment-id>")
		return
	}
	a.downloads.Cancel(args[0])
	fmt.Println("Cancel requested")
}
