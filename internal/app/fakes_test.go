package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog"

	"gopherai-docchat/internal/ai"
	"gopherai-docchat/internal/model"
	"gopherai-docchat/internal/storage"
	"gopherai-docchat/internal/vector"
)

// fakeDocs drops a document's chat records together with the document, the
// way the gorm repository does inside its transaction.
type fakeDocs struct {
	items     map[uint]*model.Document
	nextID    uint
	createErr error
	deleteErr error
	chats     *fakeChats
}

func newFakeDocs(chats *fakeChats) *fakeDocs {
	return &fakeDocs{items: map[uint]*model.Document{}, chats: chats}
}

func (f *fakeDocs) Create(doc *model.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	doc.ID = f.nextID
	cp := *doc
	f.items[doc.ID] = &cp
	return nil
}

func (f *fakeDocs) GetByID(id uint) (*model.Document, error) {
	doc, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (f *fakeDocs) ListByTokenIdentifier(tokenIdentifier string) ([]model.Document, error) {
	out := []model.Document{}
	for _, d := range f.items {
		if d.TokenIdentifier == tokenIdentifier {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDocs) UpdateDescription(id uint, description string, embedding []float32) (bool, error) {
	doc, ok := f.items[id]
	if !ok {
		return false, nil
	}
	doc.Description = description
	doc.Embedding = model.EncodeEmbedding(embedding)
	return true, nil
}

func (f *fakeDocs) Delete(id uint) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.items, id)
	if f.chats != nil {
		f.chats.deleteByDocumentID(id)
	}
	return nil
}

type fakeChats struct {
	records []model.ChatRecord
	nextID  uint
}

func (f *fakeChats) Create(record *model.ChatRecord) error {
	f.nextID++
	record.ID = f.nextID
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeChats) ListByDocumentAndToken(documentID uint, tokenIdentifier string) ([]model.ChatRecord, error) {
	var out []model.ChatRecord
	for _, r := range f.records {
		if r.DocumentID == documentID && r.TokenIdentifier == tokenIdentifier {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeChats) deleteByDocumentID(documentID uint) {
	kept := f.records[:0]
	for _, r := range f.records {
		if r.DocumentID != documentID {
			kept = append(kept, r)
		}
	}
	f.records = kept
}

// interleavingChats runs onList once, right after a history snapshot was read
// from the store and before it is returned.
type interleavingChats struct {
	*fakeChats
	onList func()
}

func (i *interleavingChats) ListByDocumentAndToken(documentID uint, tokenIdentifier string) ([]model.ChatRecord, error) {
	records, err := i.fakeChats.ListByDocumentAndToken(documentID, tokenIdentifier)
	if hook := i.onList; hook != nil {
		i.onList = nil
		hook()
	}
	return records, err
}

type fakeFiles struct {
	files   map[string]*storage.File
	deleted []string
	putErr  error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{files: map[string]*storage.File{}}
}

func (f *fakeFiles) add(content, contentType string) string {
	id := storage.NewFileID()
	f.files[id] = &storage.File{ID: id, ContentType: contentType, Data: []byte(content)}
	return id
}

func (f *fakeFiles) GenerateUploadURL(ctx context.Context) (*storage.UploadTicket, error) {
	id := storage.NewFileID()
	return &storage.UploadTicket{FileID: id, UploadURL: "http://s3.local/files/" + id}, nil
}

func (f *fakeFiles) Put(ctx context.Context, fileID string, r io.Reader, size int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return err
	}
	f.files[fileID] = &storage.File{ID: fileID, ContentType: contentType, Data: buf.Bytes()}
	return nil
}

func (f *fakeFiles) Get(ctx context.Context, fileID string) (*storage.File, error) {
	file, ok := f.files[fileID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return file, nil
}

func (f *fakeFiles) Exists(ctx context.Context, fileID string) (bool, error) {
	_, ok := f.files[fileID]
	return ok, nil
}

func (f *fakeFiles) URL(ctx context.Context, fileID string) (string, error) {
	return "http://s3.local/files/" + fileID + "?signed", nil
}

func (f *fakeFiles) Delete(ctx context.Context, fileID string) error {
	delete(f.files, fileID)
	f.deleted = append(f.deleted, fileID)
	return nil
}

type fakeScheduler struct {
	jobs []model.DescriptionJob
	err  error
}

func (f *fakeScheduler) Schedule(ctx context.Context, job model.DescriptionJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeHistory struct {
	entries     map[string][]model.ChatRecord
	versions    map[string]int64
	invalidated int
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{entries: map[string][]model.ChatRecord{}, versions: map[string]int64{}}
}

func historyKey(documentID uint, tokenIdentifier string) string {
	return fmt.Sprintf("%d:%s", documentID, tokenIdentifier)
}

func (f *fakeHistory) Get(ctx context.Context, documentID uint, tokenIdentifier string) ([]model.ChatRecord, bool, error) {
	records, ok := f.entries[historyKey(documentID, tokenIdentifier)]
	return records, ok, nil
}

func (f *fakeHistory) Version(ctx context.Context, documentID uint, tokenIdentifier string) (int64, error) {
	return f.versions[historyKey(documentID, tokenIdentifier)], nil
}

func (f *fakeHistory) Set(ctx context.Context, documentID uint, tokenIdentifier string, version int64, records []model.ChatRecord) (bool, error) {
	key := historyKey(documentID, tokenIdentifier)
	if f.versions[key] != version {
		return false, nil
	}
	f.entries[key] = records
	return true, nil
}

func (f *fakeHistory) Invalidate(ctx context.Context, documentID uint, tokenIdentifier string) error {
	key := historyKey(documentID, tokenIdentifier)
	f.versions[key]++
	delete(f.entries, key)
	f.invalidated++
	return nil
}

// fakeLLM returns content for completions and maps known texts to embeddings.
type fakeLLM struct {
	content     string
	completeErr error
	embedErr    error
	embeddings  map[string][]float32
	prompts     [][]ai.ChatMessage
}

func (f *fakeLLM) Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error) {
	f.prompts = append(f.prompts, messages)
	if f.completeErr != nil {
		return "", f.completeErr
	}
	return f.content, nil
}

func (f *fakeLLM) Embed(ctx context.Context, cfg ai.EmbeddingConfig, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	if v, ok := f.embeddings[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

type fixture struct {
	docs      *fakeDocs
	chats     *fakeChats
	files     *fakeFiles
	scheduler *fakeScheduler
	history   *fakeHistory
	llm       *fakeLLM
	index     *vector.Index
	documents *DocumentService
	chat      *ChatService
}

func newFixture() *fixture {
	idx, err := vector.NewIndex()
	if err != nil {
		panic(err)
	}
	chats := &fakeChats{}
	f := &fixture{
		docs:      newFakeDocs(chats),
		chats:     chats,
		files:     newFakeFiles(),
		scheduler: &fakeScheduler{},
		history:   newFakeHistory(),
		llm:       &fakeLLM{},
		index:     idx,
	}
	cfg := LLMConfig{
		Chat:      ai.ChatConfig{BaseURL: "http://llm.local/v1", APIKey: "sk-test-key-123456", Model: "gpt-3.5-turbo"},
		Embedding: ai.EmbeddingConfig{BaseURL: "http://llm.local/v1", Model: "text-embedding-ada-002"},
	}
	f.documents = NewDocumentService(DocumentServiceDeps{
		Documents: f.docs,
		Files:     f.files,
		Scheduler: f.scheduler,
		Index:     f.index,
		History:   f.history,
		LLM:       f.llm,
		LLMConfig: cfg,
		Limits:    SearchLimits{Default: 5, Max: 20},
		Logger:    zerolog.Nop(),
	})
	f.chat = NewChatService(ChatServiceDeps{
		Documents: f.docs,
		Chats:     f.chats,
		Files:     f.files,
		History:   f.history,
		LLM:       f.llm,
		LLMConfig: cfg,
		Logger:    zerolog.Nop(),
	})
	return f
}
