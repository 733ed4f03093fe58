package roomdto

type BotConfig struct {
	Difficulty int    `json:"difficulty"`
	Color      string `json:"color,omitempty"`
}

type CreateRoomRequest struct {
	TimeControl TimeControlInfo `json:"time_control"`
	Color       string          `json:"color,omitempty"`
	Rated       bool            `json:"rated,omitempty"`
	Bot         *BotConfig      `json:"bot,omitempty"`
}

type CreateRoomResponse struct {
	RoomID  string `json:"room_id"`
	JoinURL string `json:"join_url"`
	Status  string `json:"status"`
	Creator string `json:"creator"`
}

type MoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}
