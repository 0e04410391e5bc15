package intake

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/your-org/mediaintake/internal/artifact"
	"github.com/your-org/mediaintake/internal/engine"
	"github.com/your-org/mediaintake/internal/media"
	"github.com/your-org/mediaintake/internal/rules"
	"github.com/your-org/mediaintake/pkg/ffmpeg"
)

type fakeTranscoder struct {
	frame []byte
}

func (f *fakeTranscoder) Probe(context.Context, []byte, string) (*ffmpeg.Metadata, error) {
	return &ffmpeg.Metadata{
		Duration:   10 * time.Second,
		Width:      640,
		Height:     360,
		HasVideo:   true,
		HasAudio:   true,
		SampleRate: 44100,
	}, nil
}

func (f *fakeTranscoder) Transcode(context.Context, []byte, string, ffmpeg.TranscodeOptions) ([]byte, error) {
	return []byte("transcoded"), nil
}

func (f *fakeTranscoder) Frame(context.Context, []byte, string, time.Duration) ([]byte, error) {
	return f.frame, nil
}

func (f *fakeTranscoder) PCM(context.Context, []byte, string, int) ([]float32, error) {
	samples := make([]float32, 4000)
	for i := range samples {
		samples[i] = float32(i%100)/50 - 1
	}
	return samples, nil
}

// brokenThumbnails wraps an engine and fails every thumbnail.
type brokenThumbnails struct {
	engine.Engine
}

func (brokenThumbnails) Thumbnail(context.Context, *media.File, rules.Rule) (*media.File, error) {
	return nil, errors.New("renderer offline")
}

type recordingPublisher struct {
	mu       sync.Mutex
	keys     []string
	headers  []map[string]string
	closed   bool
	failWith error
}

func (p *recordingPublisher) Publish(_ context.Context, key, _ []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, string(key))
	p.headers = append(p.headers, headers)
	return p.failWith
}

func (p *recordingPublisher) Close(context.Context) error {
	p.closed = true
	return nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.NRGBA{R: uint8(x * 3), G: uint8(y * 5), B: 0x40, A: 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestService(t *testing.T, mutate ...func(*Params)) (*Service, *artifact.MemoryRegistry) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	refs := artifact.NewMemoryRegistry()
	p := Params{
		Engines:   engine.DefaultSet(logger, engine.StaticTranscoder(&fakeTranscoder{frame: pngBytes(t, 64, 36)})),
		Assembler: artifact.NewAssembler(refs),
		Logger:    logger,
	}
	for _, m := range mutate {
		m(&p)
	}
	return NewService(p), refs
}

func sized(name, mimeType string, n int) *media.File {
	return media.NewFile(name, mimeType, bytes.Repeat([]byte{0x01}, n))
}

func TestProcessBatch_PreservesInputOrder(t *testing.T) {
	svc, _ := newTestService(t)
	files := []*media.File{
		sized("report.pdf", "application/pdf", 100),
		media.NewFile("photo.png", "image/png", pngBytes(t, 40, 20)),
		sized("bundle.zip", "application/zip", 300),
		sized("notes.txt", "text/plain", 20),
		sized("song.mp3", "audio/mpeg", 500),
		sized("clip.mp4", "video/mp4", 800),
	}

	results, err := svc.ProcessBatch(context.Background(), files, Options{})
	require.NoError(t, err)
	require.Len(t, results, len(files))

	wantKinds := []media.Kind{media.Document, media.Image, media.Archive, media.Document, media.Audio, media.Video}
	for i, r := range results {
		assert.Equal(t, files[i].Name, r.Source.Name)
		assert.Equal(t, wantKinds[i], r.Kind)
		assert.Same(t, files[i], r.Original)
		assert.True(t, r.OK(), "%s: %+v", r.Source.Name, r.Failure)
		assert.NotNil(t, r.Thumbnail, r.Source.Name)
	}
}

func TestProcessBatch_PartialFailureIsolation(t *testing.T) {
	svc, _ := newTestService(t)
	files := []*media.File{
		sized("a.pdf", "application/pdf", 10),
		sized("b.pdf", "application/pdf", 10),
		sized("c.pdf", "application/pdf", 2000),
		sized("d.pdf", "application/pdf", 10),
		sized("e.pdf", "application/pdf", 10),
	}

	results, err := svc.ProcessBatch(context.Background(), files, Options{
		Rules: []rules.Rule{{MaxFileSize: 1000}},
	})
	require.NoError(t, err)
	require.Len(t, results, 5)

	var failed []Result
	for _, r := range results {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, "c.pdf", failed[0].Source.Name)
	assert.Equal(t, media.CodeFileTooLarge, failed[0].Failure.Code)
	assert.Nil(t, failed[0].Processed)
}

func TestProcessBatch_Base64PerRule(t *testing.T) {
	svc, _ := newTestService(t)
	const mb = 1 << 20
	files := []*media.File{
		sized("img1.jpg", "image/jpeg", 2*mb),
		sized("doc1.pdf", "application/pdf", 1*mb),
	}

	results, err := svc.ProcessBatch(context.Background(), files, Options{Rules: []rules.Rule{
		{AllowedMimeTypes: []string{"image/*"}, MaxFileSize: 5 * mb, GenerateBase64: true},
		{AllowedMimeTypes: []string{"application/pdf"}, MaxFileSize: 5 * mb},
	}})
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.True(t, results[0].OK())
	assert.NotEmpty(t, results[0].Processed.Base64)
	// The payload is not a decodable JPEG, so there is no preview, but the
	// file is still processed.
	assert.Nil(t, results[0].Thumbnail)

	require.True(t, results[1].OK())
	assert.Empty(t, results[1].Processed.Base64)
}

func TestProcessBatch_OversizedVideo(t *testing.T) {
	svc, _ := newTestService(t)
	results, err := svc.ProcessBatch(context.Background(), []*media.File{sized("huge.mp4", "video/mp4", 500<<10)},
		Options{Rules: []rules.Rule{{AllowedMimeTypes: []string{"video/*"}, MaxFileSize: 100 << 10}}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusUnprocessed, results[0].Status)
	assert.Equal(t, media.CodeFileTooLarge, results[0].Failure.Code)
}

func TestProcessBatch_RulePrecedence(t *testing.T) {
	svc, _ := newTestService(t)
	photo := media.NewFile("photo.png", "image/png", pngBytes(t, 40, 40))

	results, err := svc.ProcessBatch(context.Background(), []*media.File{photo}, Options{Rules: []rules.Rule{
		{AllowedMimeTypes: []string{"image/*"}, GenerateBlob: true},
		{},
	}})
	require.NoError(t, err)
	require.True(t, results[0].OK())
	assert.NotNil(t, results[0].Processed.Blob, "the image rule must win over the catch-all")
}

func TestProcessBatch_EmptyInput(t *testing.T) {
	svc, _ := newTestService(t)

	results, err := svc.ProcessBatch(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, ErrNoFilesProvided)
	assert.Nil(t, results)

	_, err = svc.ProcessImages(context.Background(), []*media.File{}, Options{})
	assert.ErrorIs(t, err, ErrNoFilesProvided)
}

func TestProcessSelection(t *testing.T) {
	svc, _ := newTestService(t)

	canceled := SelectorFunc(func(context.Context) ([]*media.File, error) {
		return nil, ErrSelectionCanceled
	})
	results, err := svc.ProcessSelection(context.Background(), canceled, Options{})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	results, err = svc.ProcessSelection(context.Background(), StaticSelector(), Options{})
	require.NoError(t, err)
	assert.Empty(t, results)

	broken := SelectorFunc(func(context.Context) ([]*media.File, error) {
		return nil, errors.New("dialog crashed")
	})
	_, err = svc.ProcessSelection(context.Background(), broken, Options{})
	assert.ErrorContains(t, err, "dialog crashed")

	results, err = svc.ProcessSelection(context.Background(), StaticSelector(sized("a.pdf", "application/pdf", 5)), Options{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestProcessBatch_KindSelectionCounts(t *testing.T) {
	svc, _ := newTestService(t)
	files := []*media.File{
		media.NewFile("1.png", "image/png", pngBytes(t, 8, 8)),
		sized("doc.pdf", "application/pdf", 10),
		media.NewFile("2.png", "image/png", pngBytes(t, 8, 8)),
		media.NewFile("3.png", "image/png", pngBytes(t, 8, 8)),
		sized("clip.mp4", "video/mp4", 10),
	}

	results, err := svc.ProcessBatch(context.Background(), files, Options{Rules: []rules.Rule{
		{Scope: media.Image, MaxSelectionCount: 2},
		{Scope: media.Video, MinSelectionCount: 2},
		{},
	}})
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.True(t, results[0].OK())
	assert.True(t, results[1].OK())
	assert.True(t, results[2].OK())
	require.False(t, results[3].OK())
	assert.Equal(t, media.CodeTooManyFiles, results[3].Failure.Code)
	require.False(t, results[4].OK())
	assert.Equal(t, media.CodeTooFewFiles, results[4].Failure.Code)
}

func TestProcessBatch_BatchCountViolation(t *testing.T) {
	svc, _ := newTestService(t)
	files := []*media.File{
		sized("a.pdf", "application/pdf", 10),
		sized("b.pdf", "application/pdf", 10),
		sized("c.pdf", "application/pdf", 10),
	}

	_, err := svc.ProcessBatch(context.Background(), files, Options{Rules: []rules.Rule{{MaxSelectionCount: 2}}})
	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, media.CodeTooManyFiles, batchErr.Code)

	_, err = svc.ProcessBatch(context.Background(), files, Options{Rules: []rules.Rule{{MinSelectionCount: 4}}})
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, media.CodeTooFewFiles, batchErr.Code)
}

func TestProcessBatch_UnknownFileType(t *testing.T) {
	svc, _ := newTestService(t)
	unknown := media.NewFile("blob.xyz", "", []byte{0x00, 0x9f, 0x13, 0x37, 0xfe})
	doc := sized("a.pdf", "application/pdf", 10)

	// Without rules the default catch-all tolerates the file.
	results, err := svc.ProcessBatch(context.Background(), []*media.File{unknown, doc}, Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.False(t, results[0].OK())
	assert.Equal(t, media.CodeUnknownFileType, results[0].Failure.Code)
	assert.True(t, results[1].OK())

	// With only specific rules the whole batch is refused.
	_, err = svc.ProcessBatch(context.Background(), []*media.File{doc, unknown}, Options{Rules: []rules.Rule{
		{AllowedMimeTypes: []string{"application/pdf"}},
	}})
	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, media.CodeUnknownFileType, batchErr.Code)
	assert.Contains(t, batchErr.Message, "blob.xyz")
}

func TestProcessBatch_WildcardRuleToleratesUnknownFiles(t *testing.T) {
	svc, _ := newTestService(t)
	unknown := media.NewFile("blob.xyz", "", []byte{0x00, 0x9f, 0x13, 0x37, 0xfe})
	doc := sized("a.pdf", "application/pdf", 10)

	results, err := svc.ProcessBatch(context.Background(), []*media.File{unknown, doc}, Options{Rules: []rules.Rule{
		{AllowedMimeTypes: []string{"*/*"}},
	}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.False(t, results[0].OK())
	assert.Equal(t, media.CodeUnknownFileType, results[0].Failure.Code)
	assert.True(t, results[1].OK())
}

func TestProcessBatch_NoMatchingRule(t *testing.T) {
	svc, _ := newTestService(t)
	results, err := svc.ProcessBatch(context.Background(), []*media.File{sized("a.pdf", "application/pdf", 10)},
		Options{Rules: []rules.Rule{{AllowedMimeTypes: []string{"image/*"}}}})
	require.NoError(t, err)
	require.False(t, results[0].OK())
	assert.Equal(t, media.CodeInvalidType, results[0].Failure.Code)
}

func TestProcessBatch_ThumbnailFailureKeepsFileProcessed(t *testing.T) {
	svc, _ := newTestService(t, func(p *Params) {
		p.Engines[media.Document] = brokenThumbnails{Engine: engine.Document{}}
	})
	results, err := svc.ProcessBatch(context.Background(), []*media.File{sized("a.pdf", "application/pdf", 10)}, Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusProcessed, results[0].Status)
	assert.NotNil(t, results[0].Processed)
	assert.Nil(t, results[0].Thumbnail)
}

func TestProcessBatch_Progress(t *testing.T) {
	svc, _ := newTestService(t)
	files := []*media.File{
		sized("a.pdf", "application/pdf", 10),
		media.NewFile("b.png", "image/png", pngBytes(t, 16, 16)),
		sized("c.pdf", "application/pdf", 5000),
		sized("d.zip", "application/zip", 10),
	}

	var events []ProgressEvent
	_, err := svc.ProcessBatch(context.Background(), files, Options{
		Rules:      []rules.Rule{{MaxFileSize: 1000, CompressQuality: 60}},
		OnProgress: func(e ProgressEvent) { events = append(events, e) },
	})
	require.NoError(t, err)
	require.NotEmpty(t, events)

	completed := map[string]int{}
	for i, e := range events {
		assert.Equal(t, len(files), e.TotalFiles)
		assert.GreaterOrEqual(t, e.CurrentFileIndex, 1)
		assert.LessOrEqual(t, e.CurrentFileIndex, len(files))
		if i > 0 {
			assert.GreaterOrEqual(t, e.Percentage, events[i-1].Percentage)
			assert.GreaterOrEqual(t, e.CurrentFileIndex, events[i-1].CurrentFileIndex)
		}
		if e.Stage == engine.StageCompleted {
			completed[e.FileName]++
		}
	}
	for _, f := range files {
		assert.Equal(t, 1, completed[f.Name], f.Name)
	}
	assert.InDelta(t, 100, events[len(events)-1].Percentage, 1e-9)

	var imageStages []engine.Stage
	for _, e := range events {
		if e.FileName == "b.png" {
			imageStages = append(imageStages, e.Stage)
		}
	}
	assert.Equal(t, []engine.Stage{
		engine.StageValidating,
		engine.StageCompressing,
		engine.StageGeneratingThumbnail,
		engine.StageProcessing,
		engine.StageCompleted,
	}, imageStages)
}

func TestProcessDocuments_BypassesClassification(t *testing.T) {
	svc, _ := newTestService(t)
	results, err := svc.ProcessDocuments(context.Background(),
		[]*media.File{media.NewFile("blob.xyz", "", []byte{0x00, 0x9f, 0x13})}, Options{})
	require.NoError(t, err)
	require.True(t, results[0].OK())
	assert.Equal(t, media.Document, results[0].Kind)
	assert.NotNil(t, results[0].Thumbnail)
}

func TestProcessVideos_Transcodes(t *testing.T) {
	svc, _ := newTestService(t)
	results, err := svc.ProcessVideos(context.Background(), []*media.File{sized("clip.mov", "video/quicktime", 64)},
		Options{Rules: []rules.Rule{{CompressQuality: 50, Video: rules.VideoOptions{MaxDuration: time.Minute}}}})
	require.NoError(t, err)
	require.True(t, results[0].OK(), "%+v", results[0].Failure)
	assert.Equal(t, "clip.mp4", results[0].Processed.Name)
	assert.Equal(t, "video/mp4", results[0].Processed.MimeType)
	assert.Equal(t, "10s", results[0].Processed.Metadata["duration"])
	require.NotNil(t, results[0].Thumbnail)
	assert.True(t, strings.HasPrefix(results[0].Thumbnail.Name, "clip_thumb."))
}

func TestProcessAudioFiles_Waveform(t *testing.T) {
	svc, _ := newTestService(t)
	results, err := svc.ProcessAudioFiles(context.Background(), []*media.File{sized("song.mp3", "audio/mpeg", 64)},
		Options{Rules: []rules.Rule{{Audio: rules.AudioOptions{MaxSampleRate: 22050}}}})
	require.NoError(t, err)
	require.False(t, results[0].OK())
	assert.Equal(t, media.CodeFileTooLarge, results[0].Failure.Code)

	results, err = svc.ProcessAudioFiles(context.Background(), []*media.File{sized("song.mp3", "audio/mpeg", 64)},
		Options{Rules: []rules.Rule{{GenerateBase64: true, Thumbnail: rules.ThumbnailOptions{Format: "png"}}}})
	require.NoError(t, err)
	require.True(t, results[0].OK())
	require.NotNil(t, results[0].Thumbnail)
	assert.Equal(t, "image/png", results[0].Thumbnail.MimeType)
	assert.NotEmpty(t, results[0].Thumbnail.Base64)
}

func TestRelease(t *testing.T) {
	svc, refs := newTestService(t)
	files := []*media.File{
		sized("a.pdf", "application/pdf", 10),
		sized("b.zip", "application/zip", 10),
	}
	results, err := svc.ProcessBatch(context.Background(), files, Options{})
	require.NoError(t, err)

	// Processed and thumbnail artifacts each hold a reference.
	assert.Equal(t, 4, refs.Len())
	for _, r := range results {
		assert.True(t, strings.HasPrefix(r.Processed.ReferenceURL, artifact.MemoryURLPrefix))
	}

	require.NoError(t, Release(context.Background(), results))
	assert.Zero(t, refs.Len())
	require.NoError(t, Release(context.Background(), results))
}

func TestProcessBatch_PublishesEvents(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, func(p *Params) {
		p.Events = NewEventPublisher(pub)
	})
	files := []*media.File{
		sized("a.pdf", "application/pdf", 10),
		sized("b.pdf", "application/pdf", 5000),
	}
	results, err := svc.ProcessBatch(context.Background(), files, Options{Rules: []rules.Rule{{MaxFileSize: 1000}}})
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Len(t, pub.headers, 2)
	assert.Equal(t, pub.keys[0], pub.keys[1], "one batch, one key")
	assert.Equal(t, EventTypeResult, pub.headers[0]["event_type"])
	assert.Equal(t, "processed", pub.headers[0]["status"])
	assert.Equal(t, "unprocessed", pub.headers[1]["status"])

	require.NoError(t, svc.Close(context.Background()))
	assert.True(t, pub.closed)
}

func TestProcessBatch_PublishFailureDoesNotFailBatch(t *testing.T) {
	pub := &recordingPublisher{failWith: errors.New("broker down")}
	svc, _ := newTestService(t, func(p *Params) {
		p.Events = NewEventPublisher(pub)
	})
	results, err := svc.ProcessBatch(context.Background(), []*media.File{sized("a.pdf", "application/pdf", 10)}, Options{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestNewIntakeEvent(t *testing.T) {
	failure := media.NewFailure("x.pdf", media.CodeFileTooLarge, "too big")
	ev := NewIntakeEvent("batch-1", Result{
		Status:  StatusUnprocessed,
		Kind:    media.Document,
		Source:  media.Descriptor{Name: "x.pdf", SizeBytes: 9, MimeType: "application/pdf"},
		Failure: &failure,
	})
	assert.Equal(t, "batch-1", ev.BatchID)
	assert.Equal(t, "document", ev.Kind)
	assert.Equal(t, "file-too-large", ev.ErrorCode)
	assert.False(t, ev.HasThumbnail)
	assert.NotEmpty(t, ev.ID)
}

func TestDefaultRulesApplyWhenNoneSupplied(t *testing.T) {
	svc, _ := newTestService(t, func(p *Params) {
		p.DefaultRules = []rules.Rule{{MaxFileSize: 5}}
	})
	results, err := svc.ProcessBatch(context.Background(), []*media.File{sized("a.pdf", "application/pdf", 10)}, Options{})
	require.NoError(t, err)
	assert.Equal(t, media.CodeFileTooLarge, results[0].Failure.Code)

	results, err = svc.ProcessBatch(context.Background(), []*media.File{sized("a.pdf", "application/pdf", 10)},
		Options{Rules: []rules.Rule{{}}})
	require.NoError(t, err)
	assert.True(t, results[0].OK())
}
