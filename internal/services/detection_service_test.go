package services

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/entities"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/repositories"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/logger"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/messaging"
)

type memVideoStore struct {
	mu     sync.Mutex
	videos map[uuid.UUID]*entities.Video
}

func newMemVideoStore() *memVideoStore {
	return &memVideoStore{videos: make(map[uuid.UUID]*entities.Video)}
}

func (s *memVideoStore) Create(ctx context.Context, video *entities.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = video
	return nil
}

func (s *memVideoStore) FindByID(ctx context.Context, videoID uuid.UUID) (*entities.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[videoID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return v, nil
}

func (s *memVideoStore) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entities.Video
	for _, v := range s.videos {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *memVideoStore) TransitionStatus(ctx context.Context, videoID uuid.UUID, from, to entities.VideoStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[videoID]
	if !ok || v.Status != from {
		return false, nil
	}
	v.Status = to
	return true, nil
}

func (s *memVideoStore) MarkFailed(ctx context.Context, videoID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.videos[videoID]; ok && !v.Status.IsTerminal() {
		v.Status = entities.VideoStatusFailed
	}
	return nil
}

func (s *memVideoStore) status(videoID uuid.UUID) entities.VideoStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videos[videoID].Status
}

type memSourceStore struct {
	mu      sync.Mutex
	sources map[uuid.UUID]*entities.Source
}

func newMemSourceStore() *memSourceStore {
	return &memSourceStore{sources: make(map[uuid.UUID]*entities.Source)}
}

func (s *memSourceStore) Upsert(ctx context.Context, source *entities.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[source.VideoID] = source
	return nil
}

type memResultStore struct {
	results map[uuid.UUID]*entities.Result
	byVideo map[uuid.UUID]*entities.Result
	fast    map[uuid.UUID]*entities.FastReport
	deep    map[uuid.UUID]*entities.DeepReport
}

func newMemResultStore() *memResultStore {
	return &memResultStore{
		results: make(map[uuid.UUID]*entities.Result),
		byVideo: make(map[uuid.UUID]*entities.Result),
		fast:    make(map[uuid.UUID]*entities.FastReport),
		deep:    make(map[uuid.UUID]*entities.DeepReport),
	}
}

func (s *memResultStore) add(result *entities.Result) {
	s.results[result.ID] = result
	s.byVideo[result.VideoID] = result
}

func (s *memResultStore) FindByID(ctx context.Context, resultID uuid.UUID) (*entities.Result, error) {
	r, ok := s.results[resultID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r, nil
}

func (s *memResultStore) FindByVideo(ctx context.Context, videoID uuid.UUID) (*entities.Result, error) {
	r, ok := s.byVideo[videoID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r, nil
}

func (s *memResultStore) FindFastReport(ctx context.Context, resultID uuid.UUID) (*entities.FastReport, error) {
	r, ok := s.fast[resultID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r, nil
}

func (s *memResultStore) FindDeepReport(ctx context.Context, resultID uuid.UUID) (*entities.DeepReport, error) {
	r, ok := s.deep[resultID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r, nil
}

type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte)}
}

func (s *memObjectStore) UploadFile(ctx context.Context, file *multipart.FileHeader, objectKey string) error {
	f, err := file.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectKey] = data
	return nil
}

func (s *memObjectStore) UploadStream(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectKey] = data
	return nil
}

func (s *memObjectStore) GetFileURL(ctx context.Context, objectKey string) (string, error) {
	return "https://storage.example.com/" + objectKey, nil
}

type chanBroker struct {
	jobs chan messaging.AnalysisJob
	err  error
}

func newChanBroker() *chanBroker {
	return &chanBroker{jobs: make(chan messaging.AnalysisJob, 8)}
}

func (b *chanBroker) Enqueue(ctx context.Context, job messaging.AnalysisJob) error {
	if b.err != nil {
		return b.err
	}
	b.jobs <- job
	return nil
}

type chanNotifier struct {
	failures chan string
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{failures: make(chan string, 8)}
}

func (n *chanNotifier) NotifySuccess(ctx context.Context, userID, resultID uuid.UUID) error {
	return nil
}

func (n *chanNotifier) NotifyFailure(ctx context.Context, userID uuid.UUID, errMsg string) error {
	n.failures <- errMsg
	return nil
}

type stubFetcher struct {
	content string
	err     error
}

func (f *stubFetcher) Fetch(ctx context.Context, videoURL string) (io.ReadCloser, int64, string, error) {
	if f.err != nil {
		return nil, 0, "", f.err
	}
	return io.NopCloser(strings.NewReader(f.content)), int64(len(f.content)), "video/mp4", nil
}

type serviceFixture struct {
	service  *DetectionService
	videos   *memVideoStore
	sources  *memSourceStore
	results  *memResultStore
	objects  *memObjectStore
	broker   *chanBroker
	notifier *chanNotifier
}

func newServiceFixture(fetcher VideoFetcher) *serviceFixture {
	f := &serviceFixture{
		videos:   newMemVideoStore(),
		sources:  newMemSourceStore(),
		results:  newMemResultStore(),
		objects:  newMemObjectStore(),
		broker:   newChanBroker(),
		notifier: newChanNotifier(),
	}
	f.service = NewDetectionService(
		f.videos, f.sources, f.results, f.objects,
		f.broker, f.notifier, fetcher, logger.NewDefault("test"),
	)
	return f
}

// buildFileHeader 通过真实的multipart请求构造FileHeader
func buildFileHeader(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest("POST", "/videos", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		t.Fatalf("failed to parse multipart form: %v", err)
	}
	return req.MultipartForm.File["file"][0]
}

func TestSubmitUpload(t *testing.T) {
	f := newServiceFixture(&stubFetcher{})
	userID := uuid.New()

	video, err := f.service.SubmitUpload(context.Background(), userID, buildFileHeader(t, "clip.mp4", "bytes"), entities.ModeFast)
	if err != nil {
		t.Fatalf("SubmitUpload returned error: %v", err)
	}

	if video.Status != entities.VideoStatusPending {
		t.Fatalf("expected pending, got %s", video.Status)
	}

	// 素材登记指向上传的对象
	src, ok := f.sources.sources[video.ID]
	if !ok {
		t.Fatal("source record must be created")
	}
	if _, ok := f.objects.objects[src.StoragePath]; !ok {
		t.Fatalf("uploaded object missing for key %s", src.StoragePath)
	}

	// 任务入队
	select {
	case job := <-f.broker.jobs:
		if job.VideoID != video.ID || job.Mode != entities.ModeFast {
			t.Fatalf("unexpected job %+v", job)
		}
	default:
		t.Fatal("job must be enqueued")
	}
}

func TestSubmitUploadRejectsBadExtension(t *testing.T) {
	f := newServiceFixture(&stubFetcher{})

	_, err := f.service.SubmitUpload(context.Background(), uuid.New(), buildFileHeader(t, "malware.exe", "x"), entities.ModeFast)
	if err == nil {
		t.Fatal("expected validation error for bad extension")
	}
	if len(f.videos.videos) != 0 {
		t.Fatal("no video record should be created on validation failure")
	}
}

func TestSubmitUploadRejectsBadMode(t *testing.T) {
	f := newServiceFixture(&stubFetcher{})

	_, err := f.service.SubmitUpload(context.Background(), uuid.New(), buildFileHeader(t, "clip.mp4", "x"), "turbo")
	if err == nil {
		t.Fatal("expected validation error for unknown mode")
	}
}

func TestSubmitLink(t *testing.T) {
	f := newServiceFixture(&stubFetcher{content: "remote video bytes"})
	userID := uuid.New()

	video, err := f.service.SubmitLink(context.Background(), userID, "https://example.com/clip.mp4", entities.ModeDeep)
	if err != nil {
		t.Fatalf("SubmitLink returned error: %v", err)
	}
	if video.Status != entities.VideoStatusQueued {
		t.Fatalf("link submission must return queued immediately, got %s", video.Status)
	}

	// 后台抓取完成后任务入队
	select {
	case job := <-f.broker.jobs:
		if job.VideoID != video.ID || job.Mode != entities.ModeDeep {
			t.Fatalf("unexpected job %+v", job)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the background fetch to enqueue")
	}

	if f.videos.status(video.ID) != entities.VideoStatusPending {
		t.Fatalf("expected pending after fetch, got %s", f.videos.status(video.ID))
	}
	if _, ok := f.sources.sources[video.ID]; !ok {
		t.Fatal("source record must be created after fetch")
	}
}

func TestSubmitLinkRejectsBadURL(t *testing.T) {
	f := newServiceFixture(&stubFetcher{})

	if _, err := f.service.SubmitLink(context.Background(), uuid.New(), "ftp://example.com/clip.mp4", entities.ModeFast); err == nil {
		t.Fatal("expected validation error for non-http url")
	}
}

func TestSubmitLinkFetchFailureNotifies(t *testing.T) {
	f := newServiceFixture(&stubFetcher{err: io.ErrUnexpectedEOF})

	video, err := f.service.SubmitLink(context.Background(), uuid.New(), "https://example.com/clip.mp4", entities.ModeFast)
	if err != nil {
		t.Fatalf("SubmitLink returned error: %v", err)
	}

	select {
	case <-f.notifier.failures:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the failure notification")
	}

	if f.videos.status(video.ID) != entities.VideoStatusFailed {
		t.Fatalf("expected failed, got %s", f.videos.status(video.ID))
	}
}

func TestStatusOwnership(t *testing.T) {
	f := newServiceFixture(&stubFetcher{})
	owner := uuid.New()

	video, err := f.service.SubmitUpload(context.Background(), owner, buildFileHeader(t, "clip.mp4", "bytes"), entities.ModeFast)
	if err != nil {
		t.Fatalf("SubmitUpload returned error: %v", err)
	}

	if _, err := f.service.Status(context.Background(), uuid.New(), video.ID); err == nil {
		t.Fatal("another user must not read the status")
	}

	view, err := f.service.Status(context.Background(), owner, video.ID)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if view.Status != entities.VideoStatusPending {
		t.Fatalf("expected pending, got %s", view.Status)
	}
	if view.ResultID != nil {
		t.Fatal("pending video must not expose a result id")
	}
}

func TestStatusCompletedCarriesResultID(t *testing.T) {
	f := newServiceFixture(&stubFetcher{})
	owner := uuid.New()

	video, err := f.service.SubmitUpload(context.Background(), owner, buildFileHeader(t, "clip.mp4", "bytes"), entities.ModeFast)
	if err != nil {
		t.Fatalf("SubmitUpload returned error: %v", err)
	}
	f.videos.TransitionStatus(context.Background(), video.ID, entities.VideoStatusPending, entities.VideoStatusProcessing)
	f.videos.TransitionStatus(context.Background(), video.ID, entities.VideoStatusProcessing, entities.VideoStatusCompleted)

	result := entities.NewResult(owner, video.ID, entities.VerdictFake, true)
	f.results.add(result)

	view, err := f.service.Status(context.Background(), owner, video.ID)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if view.ResultID == nil || *view.ResultID != result.ID {
		t.Fatalf("completed status must carry the result id, got %+v", view.ResultID)
	}
}

func TestGetResultOwnershipAndSharing(t *testing.T) {
	f := newServiceFixture(&stubFetcher{})
	owner := uuid.New()
	videoID := uuid.New()

	result := entities.NewResult(owner, videoID, entities.VerdictFake, true)
	f.results.add(result)
	f.results.fast[result.ID] = &entities.FastReport{
		UserID:       owner,
		ResultID:     result.ID,
		FreqResult:   entities.VerdictFake,
		FreqConf:     0.9,
		FreqImage:    "reports/" + result.ID.String() + "/freq.png",
		RppgResult:   entities.VerdictFake,
		RppgConf:     0.8,
		STTRiskLevel: entities.RiskLevelLow,
	}

	// 非归属用户通过私有接口访问被拒绝
	if _, err := f.service.GetResult(context.Background(), uuid.New(), result.ID); err == nil {
		t.Fatal("another user must not read the result")
	}

	view, err := f.service.GetResult(context.Background(), owner, result.ID)
	if err != nil {
		t.Fatalf("GetResult returned error: %v", err)
	}
	if view.Fast == nil || view.Fast.FreqImageURL == "" {
		t.Fatal("fast report view must carry a presigned image url")
	}
	if view.Deep != nil {
		t.Fatal("fast result must not carry a deep report")
	}

	// 分享接口不校验归属
	shared, err := f.service.GetSharedResult(context.Background(), result.ID)
	if err != nil {
		t.Fatalf("GetSharedResult returned error: %v", err)
	}
	if shared.TotalResult != entities.VerdictFake {
		t.Fatalf("unexpected shared verdict %s", shared.TotalResult)
	}
}
