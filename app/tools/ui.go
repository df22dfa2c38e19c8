// Package tools holds the template capture panel used to build route
// folders: screenshot a display, crop a node marker and save it.
package tools

import (
	"fmt"
	"image"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/ConserveLee/mapwalk/internal/assets"
	"github.com/ConserveLee/mapwalk/internal/config"
	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/kbinani/screenshot"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// NewToolsPanel creates the UI panel for template capture
func NewToolsPanel(win fyne.Window, store *config.Store, log *logger.AppLogger) fyne.CanvasObject {
	selectedDisplay := store.Snapshot().Display

	// 1. Screen Selector
	numDisplays := screenshot.NumActiveDisplays()
	var displayOptions []string
	for i := 0; i < numDisplays; i++ {
		bounds := screenshot.GetDisplayBounds(i)
		displayOptions = append(displayOptions, fmt.Sprintf("Display %d (%dx%d)", i, bounds.Dx(), bounds.Dy()))
	}
	if len(displayOptions) == 0 {
		displayOptions = []string{"Display 0 (Default)"}
	}

	displaySelect := widget.NewSelect(displayOptions, func(selected string) {
		var id int
		if _, err := fmt.Sscanf(selected, "Display %d", &id); err == nil {
			selectedDisplay = id
		}
	})
	if selectedDisplay < len(displayOptions) {
		displaySelect.SetSelected(displayOptions[selectedDisplay])
	}

	infoLabel := widget.NewLabel("1. Pick a screen\n2. Capture & Crop\n3. Drag around the node marker\n4. Save it into a route folder")
	infoLabel.Alignment = fyne.TextAlignCenter

	cropBtn := widget.NewButton("Capture & Crop", func() {
		bounds := screenshot.GetDisplayBounds(selectedDisplay)
		img, err := screenshot.CaptureRect(bounds)
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		showCropperWindow(store, log, img)
	})
	cropBtn.Importance = widget.HighImportance

	openDirBtn := widget.NewButton("Open Route Folders", func() {
		openDir(store.Snapshot().ModDir, log)
	})

	return container.NewVBox(
		widget.NewLabel("Screen:"),
		displaySelect,
		widget.NewSeparator(),
		infoLabel,
		cropBtn,
		widget.NewSeparator(),
		openDirBtn,
	)
}

func openDir(path string, log *logger.AppLogger) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		log.Warn("Open folder: %v", err)
		return
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", absPath)
	case "windows":
		cmd = exec.Command("explorer", absPath)
	default:
		cmd = exec.Command("xdg-open", absPath)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("Open folder: %v", err)
	}
}

func showCropperWindow(store *config.Store, log *logger.AppLogger, fullImg *image.RGBA) {
	w := fyne.CurrentApp().NewWindow("Crop Template")
	w.Resize(fyne.NewSize(800, 600))

	lbl := widget.NewLabel("Drag on the image to select the marker...")
	lbl.Alignment = fyne.TextAlignCenter

	saveBtn := widget.NewButton("Save Selection", nil)
	saveBtn.Disable()

	var selection image.Rectangle
	cropper := NewCropperWidget(fullImg, func(rect image.Rectangle) {
		selection = rect
		lbl.SetText(fmt.Sprintf("Selected %v", rect))
		saveBtn.Enable()
	})

	saveBtn.OnTapped = func() {
		if selection.Empty() {
			return
		}
		showSaveForm(w, store, log, fullImg.SubImage(selection))
	}

	w.SetContent(container.NewBorder(nil, container.NewVBox(lbl, saveBtn), nil, nil, cropper))
	w.Show()
}

func showSaveForm(win fyne.Window, store *config.Store, log *logger.AppLogger, img image.Image) {
	settings := store.Snapshot()

	preview := canvas.NewImageFromImage(img)
	preview.FillMode = canvas.ImageFillContain
	preview.SetMinSize(fyne.NewSize(100, 100))

	folders, err := assets.ListFolders(settings.ModDir)
	if err != nil {
		log.Warn("%v", err)
	}
	folderSelect := widget.NewSelectEntry(folders)
	folderSelect.SetText(settings.ExternalFolder)

	kindSelect := widget.NewSelect(Kinds, nil)
	parentEntry := widget.NewEntry()
	parentEntry.SetPlaceHolder("parent node, empty for a route start")
	nameEntry := widget.NewEntry()

	// Suggest the next free sibling under the chosen parent
	suggest := func() {
		if kindSelect.Selected != assets.MapDir {
			return
		}
		dir := filepath.Join(settings.ModDir, folderSelect.Text, assets.MapDir)
		existing, _ := filepath.Glob(filepath.Join(dir, "*.png"))
		names := make([]string, 0, len(existing))
		for _, f := range existing {
			base := filepath.Base(f)
			names = append(names, base[:len(base)-len(filepath.Ext(base))])
		}
		nameEntry.SetText(SuggestName(names, parentEntry.Text))
	}
	kindSelect.OnChanged = func(string) { suggest() }
	parentEntry.OnChanged = func(string) { suggest() }
	folderSelect.OnChanged = func(string) { suggest() }
	kindSelect.SetSelected(assets.MapDir)

	content := container.NewVBox(
		container.NewCenter(preview),
		widget.NewForm(
			widget.NewFormItem("Route", folderSelect),
			widget.NewFormItem("Kind", kindSelect),
			widget.NewFormItem("Parent", parentEntry),
			widget.NewFormItem("Name", nameEntry),
		),
	)

	dialog.ShowCustomConfirm("Save Template", "Save", "Cancel", content, func(confirm bool) {
		if !confirm {
			return
		}
		path, err := TemplatePath(settings.ModDir, folderSelect.Text, kindSelect.Selected, nameEntry.Text)
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		if err := SaveTemplate(path, img); err != nil {
			dialog.ShowError(err, win)
			return
		}
		log.Info("Saved template %s", path)
		dialog.ShowInformation("Saved", path, win)
	}, win)
}
