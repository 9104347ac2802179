package db

import (
	"encoding/json"
	"time"
)

// Conversation maps support.conversations.
type Conversation struct {
	ConversationID string     `gorm:"column:conversation_id;type:text;primaryKey"`
	Subject        *string    `gorm:"column:subject;type:text"`
	CustomerEmail  *string    `gorm:"column:customer_email;type:text"`
	Status         string     `gorm:"column:status;type:text;not null;default:open"`
	LastMessageAt  *time.Time `gorm:"column:last_message_at;type:timestamptz"`
	CreatedAt      time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Conversation) TableName() string { return "support.conversations" }

// Message maps support.messages. Ids are text: rows ingested from external
// helpdesk systems keep their upstream ids, locally created rows get a uuid.
type Message struct {
	MessageID      string          `gorm:"column:message_id;type:text;primaryKey"`
	ConversationID string          `gorm:"column:conversation_id;type:text;not null"`
	Content        string          `gorm:"column:content;type:text;not null;default:''"`
	ContentType    string          `gorm:"column:content_type;type:text;not null;default:text/plain"`
	SenderType     string          `gorm:"column:sender_type;type:text;not null"`
	SenderID       *string         `gorm:"column:sender_id;type:text"`
	IsInternal     bool            `gorm:"column:is_internal;type:boolean;not null;default:false"`
	Attachments    json.RawMessage `gorm:"column:attachments;type:jsonb"`
	EmailHeaders   json.RawMessage `gorm:"column:email_headers;type:jsonb"`
	EmailSubject   *string         `gorm:"column:email_subject;type:text"`
	ExternalID     *string         `gorm:"column:external_id;type:text"`
	EmailMessageID *string         `gorm:"column:email_message_id;type:text"`
	CreatedAt      time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	IngestedAt     time.Time       `gorm:"column:ingested_at;type:timestamptz;not null;default:now()"`
}

func (Message) TableName() string { return "support.messages" }

// Agent maps support.agents, the directory used for sender reclassification.
type Agent struct {
	AgentID     string    `gorm:"column:agent_id;type:uuid;primaryKey;default:gen_random_uuid()"`
	Email       string    `gorm:"column:email;type:text;not null;unique"`
	Phone       *string   `gorm:"column:phone;type:text"`
	DisplayName string    `gorm:"column:display_name;type:text;not null;default:''"`
	Active      bool      `gorm:"column:active;type:boolean;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Agent) TableName() string { return "support.agents" }

func autoMigrateModels() []any {
	return []any{
		&Conversation{},
		&Message{},
		&Agent{},
	}
}
