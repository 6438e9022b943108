package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/partybox/logger"
	"github.com/wfunc/partybox/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes operational queries over net/rpc.
type AdminService struct {
	roomService *services.RoomService
}

// NewAdminService creates a new AdminService.
func NewAdminService(rs *services.RoomService) *AdminService {
	return &AdminService{roomService: rs}
}

// Methods follow the net/rpc signature: exported method, exported
// arguments, second argument is a pointer, return type is error.

type RoomSummaryArgs struct {
	Code string
}

type RoomSummaryReply struct {
	Summary *services.RoomSummary
}

func (as *AdminService) GetRoomSummary(args *RoomSummaryArgs, reply *RoomSummaryReply) error {
	summary, err := as.roomService.GetRoomSummary(args.Code)
	if err != nil {
		return err
	}
	reply.Summary = summary
	return nil
}

type RoomCountsArgs struct{}

type RoomCountsReply struct {
	Counts map[string]int64
}

func (as *AdminService) CountRooms(args *RoomCountsArgs, reply *RoomCountsReply) error {
	counts, err := as.roomService.CountByStatus()
	if err != nil {
		return err
	}
	reply.Counts = counts
	return nil
}
