package mapper

import (
	"encoding/json"

	"ai-recorder-be/internal/entity"
	"ai-recorder-be/internal/model"
	"ai-recorder-be/pkg/compress"

	"gorm.io/datatypes"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToEntity(s *model.SessionArchive) *entity.Session {
	if s == nil {
		return nil
	}

	var tags []string
	_ = json.Unmarshal(s.Tags, &tags)

	var highlights []string
	_ = json.Unmarshal(s.Highlights, &highlights)

	var raw []compress.Observation
	_ = json.Unmarshal(s.RawObservations, &raw)

	var log []compress.Event
	_ = json.Unmarshal(s.CompressedLog, &log)

	return &entity.Session{
		Id:              s.Id,
		UserId:          s.UserId,
		Title:           s.Title,
		Description:     s.Description,
		StartedAt:       s.StartedAt,
		EndedAt:         s.EndedAt,
		Tags:            tags,
		Highlights:      highlights,
		RawObservations: raw,
		CompressedLog:   log,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (m *SessionMapper) ToModel(s *entity.Session) *model.SessionArchive {
	if s == nil {
		return nil
	}

	return &model.SessionArchive{
		Id:              s.Id,
		UserId:          s.UserId,
		Title:           s.Title,
		Description:     s.Description,
		StartedAt:       s.StartedAt,
		EndedAt:         s.EndedAt,
		Tags:            toJSON(s.Tags),
		Highlights:      toJSON(s.Highlights),
		RawObservations: toJSON(s.RawObservations),
		CompressedLog:   toJSON(s.CompressedLog),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (m *SessionMapper) ToEntities(sessions []*model.SessionArchive) []*entity.Session {
	entities := make([]*entity.Session, len(sessions))
	for i, s := range sessions {
		entities[i] = m.ToEntity(s)
	}
	return entities
}

func toJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}
