package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workflow — определение рабочего процесса.
//
// Workflow — это "шаблон" пайплайна обработки: граф типизированных узлов.
// Топология хранится в версиях (WorkflowVersion), сам Workflow держит
// только метаданные и указатель на текущую версию.
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID uuid.UUID `json:"id"`

	// Name — имя workflow (например, "ndvi-weekly", "scene-ingest").
	Name string `json:"name"`

	// Description — описание назначения workflow.
	Description string `json:"description,omitempty"`

	// ProjectID — проект, которому принадлежит workflow.
	ProjectID string `json:"project_id,omitempty"`

	// Status — статус жизненного цикла: DRAFT, PUBLISHED, ARCHIVED.
	Status WorkflowStatus `json:"status"`

	// CurrentVersion — метка текущей версии ("v1", "v2", ...).
	CurrentVersion string `json:"current_version"`

	// CreatedBy — кто создал workflow.
	CreatedBy string `json:"created_by,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsExecutable возвращает true, если workflow можно запускать.
// Архивные workflows не запускаются.
func (w *Workflow) IsExecutable() bool {
	return w.Status != WorkflowStatusArchived
}

// WorkflowVersion — неизменяемый снимок топологии workflow.
//
// Любое изменение узлов или рёбер создаёт новую версию;
// существующие версии никогда не модифицируются, чтобы история
// выполнений оставалась воспроизводимой.
type WorkflowVersion struct {
	// WorkflowID — ссылка на родительский workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Version — метка версии ("v1", "v2", ...). Монотонно растёт.
	Version string `json:"version"`

	// Nodes — узлы графа.
	Nodes []Node `json:"nodes"`

	// Edges — рёбра графа.
	Edges []Edge `json:"edges"`

	// Changelog — описание изменений относительно предыдущей версии.
	Changelog string `json:"changelog,omitempty"`

	// CreatedBy — кто создал версию.
	CreatedBy string `json:"created_by,omitempty"`

	// CreatedAt — время создания версии.
	CreatedAt time.Time `json:"created_at"`
}

// NodeByID возвращает узел по ID или nil.
func (v *WorkflowVersion) NodeByID(id string) *Node {
	for i := range v.Nodes {
		if v.Nodes[i].ID == id {
			return &v.Nodes[i]
		}
	}
	return nil
}

// NodeType — тип узла workflow.
type NodeType string

const (
	// NodeTypeTrigger — точка входа workflow. Ровно один на версию.
	NodeTypeTrigger NodeType = "TRIGGER"

	// NodeTypeDataInput — загрузка исходных данных (сцены, метаданные).
	NodeTypeDataInput NodeType = "DATA_INPUT"

	// NodeTypeProcessing — вычислительный шаг (индексы, трансформации).
	NodeTypeProcessing NodeType = "PROCESSING"

	// NodeTypeDecision — условное ветвление по данным.
	NodeTypeDecision NodeType = "DECISION"

	// NodeTypeOutput — сохранение/публикация результатов.
	NodeTypeOutput NodeType = "OUTPUT"
)

// IsValid проверяет, что тип узла известен.
func (t NodeType) IsValid() bool {
	switch t {
	case NodeTypeTrigger, NodeTypeDataInput, NodeTypeProcessing,
		NodeTypeDecision, NodeTypeOutput:
		return true
	default:
		return false
	}
}

// Node — узел графа workflow.
type Node struct {
	// ID — идентификатор узла, уникальный в рамках версии.
	ID string `json:"id"`

	// Type — тип узла.
	Type NodeType `json:"type"`

	// Label — человекочитаемое имя узла.
	Label string `json:"label,omitempty"`

	// Config — конфигурация узла (зависит от типа).
	Config map[string]any `json:"config,omitempty"`
}

// Edge — направленное ребро между узлами.
type Edge struct {
	// ID — идентификатор ребра.
	ID string `json:"id"`

	// Source — ID узла-источника.
	Source string `json:"source"`

	// Target — ID узла-приёмника.
	Target string `json:"target"`

	// Label — необязательная метка ребра.
	// Для DECISION узлов метки "true"/"false" выбирают ветку.
	// Для остальных рёбер метка служит именем, под которым выход
	// источника доступен приёмнику.
	Label string `json:"label,omitempty"`
}
