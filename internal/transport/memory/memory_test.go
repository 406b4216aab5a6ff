package memory

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type MemoryTestSuite struct {
	suite.Suite
	network *Network
}

func TestMemorySuite(t *testing.T) {
	suite.Run(t, new(MemoryTestSuite))
}

func (s *MemoryTestSuite) SetupTest() {
	s.network = NewNetwork()
}

func (s *MemoryTestSuite) TestDialAndExchange() {
	ctx, cancel := context.WithTimeout(s.T().Context(), time.Second)
	defer cancel()

	ln, err := s.network.Listen(ctx, "hub")
	s.Require().NoError(err)
	defer ln.Close()

	_, err = s.network.Listen(ctx, "hub")
	s.Require().ErrorIs(err, ErrAddressInUse)

	done := make(chan struct{})
	go func() {
		defer close(done)
		server, acceptErr := ln.Accept(ctx)
		s.NoError(acceptErr)
		if acceptErr != nil {
			return
		}
		s.NoError(server.Send(ctx, []byte("one")))
		s.NoError(server.Send(ctx, []byte("two")))
		_ = server.Close()
	}()

	client, err := s.network.Dial(ctx, "hub")
	s.Require().NoError(err)
	<-done

	// сообщения, отправленные до закрытия, доходят.
	msg, err := client.Receive(ctx)
	s.Require().NoError(err)
	s.Equal("one", string(msg))
	msg, err = client.Receive(ctx)
	s.Require().NoError(err)
	s.Equal("two", string(msg))
	_, err = client.Receive(ctx)
	s.Require().ErrorIs(err, io.EOF)
	s.Require().Error(client.Send(ctx, []byte("late")))
}

func (s *MemoryTestSuite) TestDialWithoutListener() {
	_, err := s.network.Dial(s.T().Context(), "nowhere")
	s.Require().ErrorIs(err, ErrNoListener)

	ln, err := s.network.Listen(s.T().Context(), "gone")
	s.Require().NoError(err)
	s.Require().NoError(ln.Close())
	_, err = s.network.Dial(s.T().Context(), "gone")
	s.Require().ErrorIs(err, ErrNoListener)

	// адрес освобождается после закрытия.
	ln, err = s.network.Listen(s.T().Context(), "gone")
	s.Require().NoError(err)
	s.Require().NoError(ln.Close())
}
