// Package narrator turns chart images into a Markdown report through a
// vision-capable chat model.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/autolysis/internal/ai"
	"github.com/KaramelBytes/autolysis/internal/logging"
	"github.com/KaramelBytes/autolysis/internal/utils"
)

// ErrNoImages is returned when the output directory holds no PNG charts.
var ErrNoImages = errors.New("no PNG images found in the output directory")

// ReportFile is the name of the generated report.
const ReportFile = "README.md"

const storyPrompt = "Create a detailed and engaging story based on this image. This is for a project and consider it as a report, don't specify things like date, language, prepared by etc. DO NOT attach any images, image links, or additional references to images in your response. Only include the narrative text based on the provided context, you can make appropriate headings and subheadings, but not too many. I am providing headers for context, but do not directly reference it in your narrative. Focus only on analyzing the data structure and overall trends.\n\n headers:%s. Go over the following points briefly: 1. The data you received, 2. The analysis you carried out, 3. The insights you discovered, 4. The implications of your findings (i.e. what to do with the insights)."

// Entry is one narrated chart.
type Entry struct {
	Image     string
	Heading   string
	Narrative string
}

// Report is the ordered set of narrated charts.
type Report struct {
	Entries []Entry
	Failed  []string
}

// Markdown renders the report document.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Image Narratives\n\n")
	for _, e := range r.Entries {
		b.WriteString(fmt.Sprintf("## %s\n\n", e.Heading))
		b.WriteString(fmt.Sprintf("![%s](./%s)\n\n", e.Image, e.Image))
		b.WriteString(strings.TrimSpace(e.Narrative))
		b.WriteString("\n\n")
	}
	return b.String()
}

// Narrator requests one narrative per chart.
type Narrator struct {
	rt    ai.Runtime
	model string
	log   *slog.Logger
}

// New returns a Narrator. A nil logger discards output.
func New(rt ai.Runtime, model string, log *slog.Logger) *Narrator {
	if log == nil {
		log = logging.Discard()
	}
	return &Narrator{rt: rt, model: model, log: log.With("component", "narrator")}
}

// ListImages returns the PNG files of dir sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read output dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".png") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Narrate describes every PNG in outDir and writes README.md there once.
// Charts whose narration fails are logged and left out of the report.
func (n *Narrator) Narrate(ctx context.Context, outDir, headersJSON string) (*Report, error) {
	images, err := ListImages(outDir)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	if mi, ok := ai.LookupModel(n.model); ok && !mi.Vision {
		n.log.WarnContext(ctx, "model is not known to accept images", "model", n.model)
	}

	rep := &Report{}
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n.log.InfoContext(ctx, "processing image", "image", img)
		story, err := n.story(ctx, filepath.Join(outDir, img), headersJSON)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			n.log.WarnContext(ctx, "could not generate story", "image", img, "error", err)
			rep.Failed = append(rep.Failed, img)
			continue
		}
		rep.Entries = append(rep.Entries, Entry{
			Image:     img,
			Heading:   strings.TrimSuffix(img, filepath.Ext(img)),
			Narrative: story,
		})
	}

	path := filepath.Join(outDir, ReportFile)
	if err := utils.SafeWriteFile(path, []byte(rep.Markdown())); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	n.log.InfoContext(ctx, "report written", "path", path, "entries", len(rep.Entries))
	return rep, nil
}

func (n *Narrator) story(ctx context.Context, path, headersJSON string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	req := ai.GenerateRequest{
		Model: n.model,
		Messages: []ai.Message{{
			Role: "user",
			Parts: []ai.ContentPart{
				ai.TextPart(fmt.Sprintf(storyPrompt, headersJSON)),
				ai.ImagePart("image/png", data),
			},
		}},
	}
	resp, err := n.rt.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text()
}
