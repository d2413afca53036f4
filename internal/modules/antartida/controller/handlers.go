package controller

import (
	"bytes"
	"errors"
	"net/http"

	"antartida-viewer/internal/modules/antartida/client"
	"antartida-viewer/internal/modules/antartida/display"
	"antartida-viewer/internal/modules/antartida/query"
	"antartida-viewer/internal/modules/antartida/views"
	"antartida-viewer/internal/utils"
)

func (c *antartidaControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := c.pageData(c.holder.Current(), nil, nil)
	c.writePage(w, http.StatusOK, data)
}

func (c *antartidaControllerImpl) handleStatePartial(w http.ResponseWriter, r *http.Request) {
	data := c.pageData(c.holder.Current(), nil, nil)
	var buf bytes.Buffer
	if err := views.RenderStatePartial(&buf, data); err != nil {
		c.logger.Error("state partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (c *antartidaControllerImpl) handleQuery(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	in := formInputFromRequest(r)

	desc, fieldErrs := query.Build(in)
	if fieldErrs != nil {
		c.logger.Info("query rejected", "error", fieldErrs.Err())
		form := formFromInput(in)
		c.writePage(w, http.StatusUnprocessableEntity, c.pageData(c.holder.Current(), &form, fieldErrs))
		return
	}

	sub, err := c.holder.Begin(desc)
	if errors.Is(err, display.ErrBusy) {
		c.logger.Info("query refused while another is in flight")
		c.writePage(w, http.StatusConflict, c.pageData(c.holder.Current(), nil, nil))
		return
	}
	if err != nil {
		c.logger.Error("begin query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to start query")
		return
	}

	log := c.logger.With("submission_id", sub.ID)
	log.Info("query submitted",
		"station", desc.Station,
		"start", desc.StartParam(),
		"end", desc.EndParam(),
		"location", desc.InputTimeZone,
		"aggregation", desc.Aggregation,
		"variables", desc.VariablesParam(),
	)

	status := http.StatusOK
	data, err := c.fetcher.Fetch(r.Context(), desc)
	if err != nil {
		status = http.StatusBadGateway
		log.Warn("query failed", "error", err)
		if settleErr := c.holder.Reject(sub, client.UserMessage(err)); settleErr != nil {
			log.Error("settle failed query", "error", settleErr)
		}
	} else {
		log.Info("query succeeded", "records", len(data))
		if settleErr := c.holder.Resolve(sub, data); settleErr != nil {
			log.Error("settle successful query", "error", settleErr)
		}
	}

	c.writePage(w, status, c.pageData(c.holder.Current(), nil, nil))
}

// pageData maps the display state to the page view model. form overrides
// the form derived from the state; fieldErrs are shown inline.
func (c *antartidaControllerImpl) pageData(state display.State, form *views.FormView, fieldErrs query.FieldErrors) *views.PageData {
	data := &views.PageData{State: state.Name()}

	switch s := state.(type) {
	case display.Idle:
		data.Form = c.defaultForm()
	case display.Loading:
		data.Busy = true
		data.Form = formFromDescriptor(s.Submission.Query)
	case display.Success:
		data.Form = formFromDescriptor(s.Query)
		data.Result = views.NewResultView(s.Data, s.Query.SelectedVariables(), summary(s.Query), s.SettledAt, c.now())
	case display.Failed:
		data.Form = formFromDescriptor(s.Query)
		data.ErrorMessage = s.Message
	}

	if form != nil {
		data.Form = *form
	}
	if len(fieldErrs) > 0 {
		data.FieldErrors = make(map[string]string, len(fieldErrs))
		for f, msg := range fieldErrs {
			data.FieldErrors[string(f)] = msg
		}
	}
	return data
}

func (c *antartidaControllerImpl) writePage(w http.ResponseWriter, status int, data *views.PageData) {
	var buf bytes.Buffer
	if err := views.RenderPage(&buf, data); err != nil {
		c.logger.Error("page template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, status, buf.Bytes())
}
