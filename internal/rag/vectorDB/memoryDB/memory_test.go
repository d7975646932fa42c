package memoryDB

import (
	"testing"

	"github.com/akolanti/knowledgecore/internal/rag/vectorDB"
	"github.com/akolanti/knowledgecore/internal/rag/vectorDB/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) vectorDB.Store { return New() })
}
