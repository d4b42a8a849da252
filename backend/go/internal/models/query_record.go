package models

import "time"

// QueryRecord 记录一次问答的结果，写入 MongoDB 作为查询历史。
type QueryRecord struct {
	ID         string    `bson:"_id" json:"id"`
	DocumentID string    `bson:"document_id,omitempty" json:"document_id,omitempty"`
	Query      string    `bson:"query" json:"query"`
	Answer     string    `bson:"answer" json:"answer"`
	Fragments  int       `bson:"fragments" json:"fragments"`
	Retrieved  int       `bson:"retrieved" json:"retrieved"`
	FellBack   bool      `bson:"fell_back" json:"fell_back"`
	Cancelled  bool      `bson:"cancelled" json:"cancelled"`
	StartedAt  time.Time `bson:"started_at" json:"started_at"`
	FinishedAt time.Time `bson:"finished_at" json:"finished_at"`
}
