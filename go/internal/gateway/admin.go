package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// AdminServiceName is the fully-qualified name of the room admin service.
	AdminServiceName = "jeopardy.admin.v1.RoomAdminService"

	ListRoomsProcedure = "/jeopardy.admin.v1.RoomAdminService/ListRooms"
	GetStateProcedure  = "/jeopardy.admin.v1.RoomAdminService/GetState"
)

// The admin service only uses well-known types, so its descriptor is built
// here and registered globally for server reflection.
var adminService = registerAdminService()

func registerAdminService() protoreflect.ServiceDescriptor {
	fdp := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("jeopardy/admin/v1/admin.proto"),
		Package: proto.String("jeopardy.admin.v1"),
		Syntax:  proto.String("proto3"),
		Dependency: []string{
			"google/protobuf/empty.proto",
			"google/protobuf/struct.proto",
			"google/protobuf/wrappers.proto",
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("RoomAdminService"),
			Method: []*descriptorpb.MethodDescriptorProto{
				{
					Name:       proto.String("ListRooms"),
					InputType:  proto.String(".google.protobuf.Empty"),
					OutputType: proto.String(".google.protobuf.ListValue"),
				},
				{
					Name:       proto.String("GetState"),
					InputType:  proto.String(".google.protobuf.StringValue"),
					OutputType: proto.String(".google.protobuf.Struct"),
				},
			},
		}},
	}
	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("build admin descriptor: %v", err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("register admin descriptor: %v", err))
	}
	return fd.Services().ByName("RoomAdminService")
}

// AdminServer implements the room admin RPCs on top of the state handler.
type AdminServer struct {
	state *StateHandler
}

func NewAdminServer(state *StateHandler) *AdminServer {
	return &AdminServer{state: state}
}

// Handlers returns the procedure paths and their handlers.
func (a *AdminServer) Handlers() map[string]http.Handler {
	methods := adminService.Methods()
	return map[string]http.Handler{
		ListRoomsProcedure: connect.NewUnaryHandler(
			ListRoomsProcedure,
			a.ListRooms,
			connect.WithSchema(methods.ByName("ListRooms")),
		),
		GetStateProcedure: connect.NewUnaryHandler(
			GetStateProcedure,
			a.GetState,
			connect.WithSchema(methods.ByName("GetState")),
		),
	}
}

// ListRooms returns the loaded rooms as a list of JSON objects.
func (a *AdminServer) ListRooms(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.ListValue], error) {
	var items []any
	if err := jsonConvert(a.state.summaries(), &items); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	list, err := structpb.NewList(items)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("build room list: %w", err))
	}
	return connect.NewResponse(list), nil
}

// GetState returns a room's published state.
func (a *AdminServer) GetState(ctx context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[structpb.Struct], error) {
	roomID := req.Msg.GetValue()
	if roomID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("room id is required"))
	}
	s, ok := a.state.registry.Lookup(roomID)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("room %s not found", roomID))
	}

	var fields map[string]any
	if err := jsonConvert(s.State(), &fields); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("build state struct: %w", err))
	}
	return connect.NewResponse(st), nil
}

// jsonConvert reshapes v into the generic values structpb accepts.
func jsonConvert(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}
