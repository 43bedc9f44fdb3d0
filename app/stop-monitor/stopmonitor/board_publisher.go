package stopmonitor

import (
	"encoding/json"
	"fmt"
	"github.com/nats-io/nats.go"
	logger "log"
)

// BoardDestination is where boards are sent after each update
type BoardDestination interface {
	Publish(board *Board) error
}

// NatsBoardDestination sends boards over nats
type NatsBoardDestination struct {
	natsConn     *nats.Conn
	boardSubject string
}

// NewNatsBoardDestination builds NatsBoardDestination publishing on boardSubject
func NewNatsBoardDestination(natsConn *nats.Conn, boardSubject string) *NatsBoardDestination {
	return &NatsBoardDestination{
		natsConn:     natsConn,
		boardSubject: boardSubject,
	}
}

func (n *NatsBoardDestination) Publish(board *Board) error {
	jsonData, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("error marshaling board to json: error:%w", err)
	}
	return n.natsConn.Publish(n.boardSubject, jsonData)
}

// BoardPublisher publishes boards, logging failures
type BoardPublisher struct {
	log         *logger.Logger
	destination BoardDestination
}

// NewBoardPublisher builds BoardPublisher
func NewBoardPublisher(log *logger.Logger, destination BoardDestination) *BoardPublisher {
	return &BoardPublisher{
		log:         log,
		destination: destination,
	}
}

// Publish sends board to the destination
func (p *BoardPublisher) Publish(board *Board) {
	if err := p.destination.Publish(board); err != nil {
		p.log.Printf("Error publishing board for stop %d: error:%v", board.StopId, err)
	}
}
