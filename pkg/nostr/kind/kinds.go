package kind

import "fmt"

// T - which will be externally referenced as kind.T is the event type in the
// nostr protocol, the use of the capital T signifying type, consistent with Go
// idiom, the Go standard library, and much, conformant, existing code.
type T uint16

func (ki T) ToInt() int       { return int(ki) }
func (ki T) ToUint16() uint16 { return uint16(ki) }

const (
	// ProfileMetadata is an event type that stores user profile data, pet
	// names, bio, lightning address, etc.
	ProfileMetadata T = 0
	// TextNote is a standard short text note of plain text a la twitter
	TextNote T = 1
	// RecommendRelay is a deprecated relay recommendation.
	RecommendRelay T = 2
	// FollowList an event containing a list of pubkeys of users that should be
	// shown as follows in a timeline.
	FollowList T = 3
	// EncryptedDirectMessage is a NIP-04 direct message.
	EncryptedDirectMessage T = 4
	// Deletion is a NIP-09 request to delete the events referenced by its e
	// tags.
	Deletion T = 5
	Repost   T = 6
	Reaction T = 7
	// ChannelMessage is a NIP-28 public chat message.
	ChannelMessage T = 42
	Reporting      T = 1984
	Label          T = 1985
	// CommunityPostApproval is the NIP-72 moderator approval of a post.
	CommunityPostApproval T = 4550
	ZapRequest            T = 9734
	Zap                   T = 9735

	// ReplaceableStart is the first of the range where only the latest event
	// per pubkey is kept.
	ReplaceableStart  T = 10000
	MuteList          T = 10000
	PinList           T = 10001
	RelayListMetadata T = 10002
	BookmarkList      T = 10003
	// ReplaceableEnd is one past the last replaceable kind.
	ReplaceableEnd T = 20000

	// EphemeralStart is the first of the range of kinds that are relayed but
	// never stored.
	EphemeralStart       T = 20000
	ClientAuthentication T = 22242
	NostrConnect         T = 24133
	// EphemeralEnd is one past the last ephemeral kind.
	EphemeralEnd T = 30000

	// ParameterizedReplaceableStart is the first of the range where the latest
	// event per pubkey and d tag is kept.
	ParameterizedReplaceableStart T = 30000
	FollowSets                    T = 30000
	LongFormContent               T = 30023
	ApplicationSpecificData       T = 30078
	LiveEvent                     T = 30311
	// CommunityDefinition is the NIP-72 community definition.
	CommunityDefinition T = 34550
	// ParameterizedReplaceableEnd is one past the last parameterized
	// replaceable kind.
	ParameterizedReplaceableEnd T = 40000
)

var Map = map[T]string{
	ProfileMetadata:         "ProfileMetadata",
	TextNote:                "TextNote",
	RecommendRelay:          "RecommendRelay",
	FollowList:              "FollowList",
	EncryptedDirectMessage:  "EncryptedDirectMessage",
	Deletion:                "Deletion",
	Repost:                  "Repost",
	Reaction:                "Reaction",
	ChannelMessage:          "ChannelMessage",
	Reporting:               "Reporting",
	Label:                   "Label",
	CommunityPostApproval:   "CommunityPostApproval",
	ZapRequest:              "ZapRequest",
	Zap:                     "Zap",
	MuteList:                "MuteList",
	PinList:                 "PinList",
	RelayListMetadata:       "RelayListMetadata",
	BookmarkList:            "BookmarkList",
	ClientAuthentication:    "ClientAuthentication",
	NostrConnect:            "NostrConnect",
	FollowSets:              "FollowSets",
	LongFormContent:         "LongFormContent",
	ApplicationSpecificData: "ApplicationSpecificData",
	LiveEvent:               "LiveEvent",
	CommunityDefinition:     "CommunityDefinition",
}

// GetString returns a human readable name for the kind, or its class and
// number if it is not one of the well known kinds.
func GetString(ki T) string {
	if s, ok := Map[ki]; ok {
		return s
	}
	return fmt.Sprintf("%s(%d)", ki.Class(), ki)
}

func (ki T) IsReplaceable() bool {
	return ki == ProfileMetadata || ki == FollowList ||
		(ki >= ReplaceableStart && ki < ReplaceableEnd)
}

func (ki T) IsEphemeral() bool {
	return ki >= EphemeralStart && ki < EphemeralEnd
}

func (ki T) IsParameterizedReplaceable() bool {
	return ki >= ParameterizedReplaceableStart &&
		ki < ParameterizedReplaceableEnd
}

// IsRegular is true for kinds that are stored as is and only removed by a
// deletion or by retention pruning.
func (ki T) IsRegular() bool {
	return !ki.IsReplaceable() && !ki.IsEphemeral() &&
		!ki.IsParameterizedReplaceable()
}

// Class is the storage class of a kind.
type Class int

const (
	Regular Class = iota
	Replaceable
	Ephemeral
	ParameterizedReplaceable
)

func (c Class) String() string {
	switch c {
	case Replaceable:
		return "Replaceable"
	case Ephemeral:
		return "Ephemeral"
	case ParameterizedReplaceable:
		return "ParameterizedReplaceable"
	default:
		return "Regular"
	}
}

// Class derives the storage class from the kind number.
func (ki T) Class() Class {
	switch {
	case ki.IsEphemeral():
		return Ephemeral
	case ki.IsReplaceable():
		return Replaceable
	case ki.IsParameterizedReplaceable():
		return ParameterizedReplaceable
	default:
		return Regular
	}
}
