package catalog

import (
	"log"
	"strings"
	"sync"
)

const testStopFile = `22,22,State/Lake,1001,41.8850,-87.6278,180,
22,22,State/Lake,1002,41.8848,-87.6281,0,
36,36,State/Lake,1003,41.8851,-87.6277,0,
22,22,Clark/Lake,1100,41.8857,-87.6309,180,
Brown,Brn,State/Lake,40260,41.88574,-87.627835,,
Green,G,State/Lake,40260,41.88574,-87.627835,,Brown
Brown,Brn,State/Lake,30050,41.88574,-87.627835,,
Red,Red,Monroe,40790,41.880745,-87.627696,,
Red,Red,Howard,40900,42.019063,-87.672892,,
`

type testLogWriter struct {
	mu       sync.Mutex
	logLines []string
	log      *log.Logger
}

func makeTestLogWriter() *testLogWriter {
	logWriter := testLogWriter{
		logLines: make([]string, 0),
	}
	logger := log.New(&logWriter, "TRANSIT_API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logWriter.log = logger
	return &logWriter
}

func (t *testLogWriter) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logLines = append(t.logLines, string(p))
	return len(p), nil
}

func (t *testLogWriter) contains(text string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, line := range t.logLines {
		if strings.Contains(line, text) {
			return true
		}
	}
	return false
}

func loadTestCatalog() *Catalog {
	entries, _, err := ParseStopFile(strings.NewReader(testStopFile), "CTA_STOP_XFERS.txt")
	if err != nil {
		panic(err)
	}
	return New(entries)
}
